package main

import (
	"encoding/json"
	"os"
	"time"

	"crew-schedule-bot/pkg/weekkey"
)

type commandOutput struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	Result     any    `json:"result"`
	Error      string `json:"error,omitempty"`
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResult(command string, start time.Time, result any, resultErr error) error {
	out := commandOutput{
		Command:    command,
		DurationMS: time.Since(start).Milliseconds(),
		Result:     result,
	}
	if resultErr != nil {
		out.Error = resultErr.Error()
	}
	if err := writeJSON(out); err != nil {
		return err
	}
	return resultErr
}

// weekOrCurrent - пустая строка означает текущую неделю
func weekOrCurrent(s string) (weekkey.Key, error) {
	if s == "" {
		return weekkey.FromDate(time.Now()), nil
	}
	return weekkey.Parse(s)
}

func dateUTC(s string) (time.Time, error) {
	return time.Parse(weekkey.DateLayout, s)
}
