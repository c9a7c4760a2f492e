package queue

import (
	"fmt"
	"strings"
)

// BulkImportMessage is the broker payload for asynchronous batch processing.
// It carries the original CSV text, not the parsed rows, so the worker
// re-parses independently of the submitter's validation pass.
type BulkImportMessage struct {
	BatchID string `json:"batchId"`
	CSVText string `json:"csvText"`
}

func (m BulkImportMessage) Validate() error {
	if strings.TrimSpace(m.BatchID) == "" {
		return fmt.Errorf("batchId is required")
	}
	if m.CSVText == "" {
		return fmt.Errorf("csvText is required")
	}
	return nil
}
