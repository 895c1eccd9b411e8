package httputil

import (
	"net/http"
	"time"
)

type Clients struct {
	Scraping *http.Client // target sites: short timeout, no redirect following
	Liveness *http.Client // HEAD/GET liveness probes
	API      *http.Client // delivery gateways
}

func NewClients(requestTimeout time.Duration) *Clients {
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}

	scraping := &http.Client{
		Timeout: requestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	liveness := &http.Client{
		Timeout: requestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Clients{
		Scraping: scraping,
		Liveness: liveness,
		API:      &http.Client{Timeout: 30 * time.Second},
	}
}
