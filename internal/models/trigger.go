package models

// AbuseCheckModel is the trigger model handled by the auto-check pipeline.
const AbuseCheckModel = "abuseCheck"

// Trigger is a queued request to run a check. ID is the abuse report id.
type Trigger struct {
	Model string `json:"model"`
	ID    string `json:"id"`
}
