package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const batchIDPrefix = "BATCH_"

// NewBatchID returns BATCH_<YYYYMMDD>_<8 uppercase hex chars> using the UTC date of now.
func NewBatchID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]

	return batchIDPrefix + now.UTC().Format("20060102") + "_" + suffix
}
