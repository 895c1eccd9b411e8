package services

import (
	"strings"
	"testing"

	"github.com/amirsamani13/househunt-hq-sub000/models"
)

func TestScoreMessageCleanMessage(t *testing.T) {
	listing := groningenListing()
	_, _, text := RenderListingEmail(&models.Alert{Name: "centrum"}, listing)

	score, issues := ScoreMessage(text, listing)
	if score != 100 {
		t.Fatalf("score = %d, want 100 (issues: %v)", score, issues)
	}
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestScoreMessageMissingCurrencyAndCity(t *testing.T) {
	listing := groningenListing()
	message := strings.Repeat("A perfectly long message about a rental home without key facts. ", 3)

	score, issues := ScoreMessage(message, listing)
	if score != 65 {
		t.Fatalf("score = %d, want 100-20-15=65", score)
	}
	if score >= QualityPassThreshold {
		t.Fatal("65 must be below the pass threshold")
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %v, want missing_currency and missing_city", issues)
	}
}

func TestScoreMessageShort(t *testing.T) {
	listing := groningenListing()
	score, issues := ScoreMessage("€ 800, Groningen", listing)
	if score != 75 {
		t.Fatalf("score = %d, want 75 for short message", score)
	}
	if len(issues) != 1 || issues[0] != "message_too_short" {
		t.Fatalf("issues = %v", issues)
	}
}

func TestScoreMessageAllDeductions(t *testing.T) {
	listing := groningenListing()
	score, issues := ScoreMessage("x", listing)
	if score != 40 {
		t.Fatalf("score = %d, want 40 after all three deductions", score)
	}
	if len(issues) != 3 {
		t.Fatalf("issues = %v, want all three", issues)
	}
}
