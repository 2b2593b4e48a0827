package deliveries

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mcontrerasv/almacen/internal/domain/requests"
)

// Delivery numbers are date-scoped sequentials: DLV-ART-20250830-001,
// DLV-AST-20250830-002, ... The sequence restarts every day per kind.

// NumberPrefix builds the number prefix for a kind and day.
func NumberPrefix(kind requests.Kind, day time.Time) string {
	k := "ART"
	if kind == requests.KindAsset {
		k = "AST"
	}
	return fmt.Sprintf("DLV-%s-%s", k, day.Format("20060102"))
}

// NextNumber returns the number following last within prefix. An empty last
// starts the day's sequence at 001.
func NextNumber(prefix, last string) (string, error) {
	if last == "" {
		return prefix + "-001", nil
	}
	idx := strings.LastIndex(last, "-")
	if idx < 0 || !strings.HasPrefix(last, prefix) {
		return "", fmt.Errorf("delivery number %q does not match prefix %q", last, prefix)
	}
	seq, err := strconv.Atoi(last[idx+1:])
	if err != nil {
		return "", fmt.Errorf("delivery number %q has no sequence: %w", last, err)
	}
	return fmt.Sprintf("%s-%03d", prefix, seq+1), nil
}
