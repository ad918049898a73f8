// Package sync implements deferred reconciliation of progress writes that
// failed while the marketplace API was unreachable.
package sync

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/lectio-cli/lectio/api"
	"github.com/lectio-cli/lectio/filesystem"
	"github.com/lectio-cli/lectio/log"
	"github.com/lectio-cli/lectio/where"
)

// FailedWrite encapsulates a single progress update awaiting reconciliation.
type FailedWrite struct {
	Timestamp int64              `json:"timestamp"`
	Update    api.ProgressUpdate `json:"update"`
}

func spillFile() string {
	return filepath.Join(where.Cache(), "failed_syncs.json")
}

// QueueFailure persists a failed progress write to a local JSON log for
// deferred reconciliation on the next startup.
func QueueFailure(update api.ProgressUpdate) error {
	f, err := filesystem.API().OpenFile(spillFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(FailedWrite{
		Timestamp: time.Now().Unix(),
		Update:    update,
	})
}

// ReconcileFailures initializes an asynchronous background process to replay
// previously failed progress writes. Only the newest write per lecture is
// replayed; the server treats each one as an idempotent upsert.
func ReconcileFailures() {
	go func() {
		path := spillFile()
		fs := filesystem.API()

		info, err := fs.Stat(path)
		if err != nil || info.Size() == 0 {
			return
		}

		content, err := fs.ReadFile(path)
		if err != nil {
			return
		}

		// Newest write per lecture wins; earlier spills are superseded.
		latest := make(map[string]FailedWrite)
		var order []string
		decoder := json.NewDecoder(bytes.NewReader(content))
		for decoder.More() {
			var w FailedWrite
			if err := decoder.Decode(&w); err != nil {
				continue
			}
			if _, seen := latest[w.Update.LectureID]; !seen {
				order = append(order, w.Update.LectureID)
			}
			latest[w.Update.LectureID] = w
		}

		if len(latest) == 0 {
			return
		}

		client := api.New()
		successCount := 0

		for i, lectureID := range order {
			// Apply incremental delay with randomized jitter to manage request throttling.
			backoff := time.Duration((1<<i)*100)*time.Millisecond + time.Duration(rand.Intn(100))*time.Millisecond
			time.Sleep(backoff)

			if _, err := client.SaveProgress(latest[lectureID].Update); err != nil {
				log.Warnf("reconciling progress for %s: %v", lectureID, err)
				continue
			}
			successCount++
		}

		// Truncate the failure log only once every write landed.
		if successCount == len(order) {
			_ = fs.Remove(path)
		}
	}()
}
