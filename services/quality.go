package services

import (
	"strings"

	"github.com/amirsamani13/househunt-hq-sub000/models"
)

// QualityPassThreshold is the minimum score a rendered notification
// must reach before the QA agent counts it as healthy.
const QualityPassThreshold = 70

// minMessageLength is the shortest body that can plausibly describe a
// listing.
const minMessageLength = 100

// ScoreMessage rates a rendered notification body against the listing
// it describes. Starts at 100, subtracts a fixed penalty per issue.
func ScoreMessage(message string, listing *models.Listing) (int, []string) {
	score := 100
	var issues []string

	if len(strings.TrimSpace(message)) < minMessageLength {
		score -= 25
		issues = append(issues, "message_too_short")
	}
	if !strings.Contains(message, "€") {
		score -= 20
		issues = append(issues, "missing_currency")
	}
	if listing.City != "" && !strings.Contains(strings.ToLower(message), strings.ToLower(listing.City)) {
		score -= 15
		issues = append(issues, "missing_city")
	}

	if score < 0 {
		score = 0
	}
	return score, issues
}
