package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdScrapeNow    CommandType = "scrape_now"
	CmdScrapeSource CommandType = "scrape_source"
	CmdPause        CommandType = "pause"
	CmdResume       CommandType = "resume"
	CmdNotifyNow      CommandType = "notify_now"
	CmdQANow          CommandType = "qa_now"
	CmdRepairSource   CommandType = "repair_source"
	CmdDispatchAlerts CommandType = "dispatch_alerts"
)

type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	Source   string `json:"source,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	AlertID  string `json:"alert_id,omitempty"` // admin alert uuid or "latest"
}
