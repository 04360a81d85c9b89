package timeline

import "github.com/robfig/cron/v3"

type ScheduledVerification struct {
	// FixtureDir is the directory that holds the fixtures to verify.
	FixtureDir string
	// Schedule defines how often the fixtures are verified. For the format see
	// https://pkg.go.dev/github.com/robfig/cron#hdr-CRON_Expression_Format
	Schedule string
	// EntryID identifies the cronjob
	EntryID cron.EntryID
}
