package services

import (
	"fmt"
	"strings"

	"github.com/amirsamani13/househunt-hq-sub000/models"
)

// RenderListingEmail produces the subject plus HTML and plain-text
// bodies for one matched listing.
func RenderListingEmail(alert *models.Alert, listing *models.Listing) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("New rental match: %s (€%d/month)", listing.Title, listing.Price)

	var details []string
	details = append(details, fmt.Sprintf("Rent: €%d per month", listing.Price))
	if listing.Bedrooms != nil {
		details = append(details, fmt.Sprintf("Bedrooms: %d", *listing.Bedrooms))
	}
	if listing.Bathrooms != nil {
		details = append(details, fmt.Sprintf("Bathrooms: %d", *listing.Bathrooms))
	}
	if listing.SurfaceM2 != nil {
		details = append(details, fmt.Sprintf("Surface: %d m2", *listing.SurfaceM2))
	}
	if listing.City != "" {
		details = append(details, fmt.Sprintf("City: %s", listing.City))
	}
	if listing.Address != "" {
		details = append(details, fmt.Sprintf("Address: %s", listing.Address))
	}
	details = append(details, fmt.Sprintf("Source: %s", listing.Source))

	var text strings.Builder
	fmt.Fprintf(&text, "Your alert %q matched a new listing.\n\n", alert.Name)
	fmt.Fprintf(&text, "%s\n", listing.Title)
	for _, d := range details {
		fmt.Fprintf(&text, "  %s\n", d)
	}
	fmt.Fprintf(&text, "\nView the listing: %s\n", listing.URL)
	textBody = text.String()

	var html strings.Builder
	html.WriteString("<html><body>")
	fmt.Fprintf(&html, "<p>Your alert <strong>%s</strong> matched a new listing.</p>", escapeHTML(alert.Name))
	fmt.Fprintf(&html, "<h2>%s</h2>", escapeHTML(listing.Title))
	html.WriteString("<ul>")
	for _, d := range details {
		fmt.Fprintf(&html, "<li>%s</li>", escapeHTML(d))
	}
	html.WriteString("</ul>")
	fmt.Fprintf(&html, `<p><a href="%s">View the listing</a></p>`, listing.URL)
	html.WriteString("</body></html>")
	htmlBody = html.String()

	return subject, htmlBody, textBody
}

func renderSMS(listing *models.Listing) string {
	city := listing.City
	if city == "" {
		city = listing.Source
	}
	return fmt.Sprintf("New rental: %s, €%d/month (%s) %s", listing.Title, listing.Price, city, listing.URL)
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
