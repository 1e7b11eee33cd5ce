package stockcount

import (
	"context"
	"fmt"
	"time"

	"stockcount-backend/internal/store"
)

const maxNumberAttempts = 5

// nextNumber builds PREFIX-YYYYMMDD-NNNN from the number of documents already
// issued that day. attempt shifts the sequence after a unique collision.
func nextNumber(ctx context.Context, st store.Store, kind store.NumberKind, prefix string, day time.Time, attempt int) (string, error) {
	datePrefix := fmt.Sprintf("%s-%s-", prefix, day.Format("20060102"))
	n, err := st.CountNumbersWithPrefix(ctx, kind, datePrefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", datePrefix, n+1+int64(attempt)), nil
}
