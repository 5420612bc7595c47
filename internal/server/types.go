package server

import "github.com/anmicius0/euvat-checker/internal/vat"

// ValidationSummary is the pre-flight classification of a submitted batch.
// The scheduler classifies again as it dequeues; this is only reported back early.
type ValidationSummary struct {
	TotalVATNumbers     int
	WellFormed          int
	Malformed           int
	InvalidCountryCodes int
	ValidCountryCodes   []string
}

func summarize(identifiers []string) ValidationSummary {
	summary := ValidationSummary{TotalVATNumbers: len(identifiers)}
	for _, id := range identifiers {
		switch vat.Classify(id) {
		case vat.WellFormed:
			summary.WellFormed++
		case vat.MalformedCountry:
			summary.Malformed++
			summary.InvalidCountryCodes++
		default:
			summary.Malformed++
		}
	}
	if summary.InvalidCountryCodes > 0 {
		summary.ValidCountryCodes = vat.CountryCodes()
	}
	return summary
}
