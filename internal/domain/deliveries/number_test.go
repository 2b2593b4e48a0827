package deliveries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcontrerasv/almacen/internal/domain/requests"
)

func TestNumberPrefix(t *testing.T) {
	day := time.Date(2025, time.August, 30, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "DLV-ART-20250830", NumberPrefix(requests.KindArticle, day))
	assert.Equal(t, "DLV-AST-20250830", NumberPrefix(requests.KindAsset, day))
}

func TestNextNumber_StartsSequence(t *testing.T) {
	n, err := NextNumber("DLV-ART-20250830", "")
	require.NoError(t, err)
	assert.Equal(t, "DLV-ART-20250830-001", n)
}

func TestNextNumber_Increments(t *testing.T) {
	n, err := NextNumber("DLV-ART-20250830", "DLV-ART-20250830-001")
	require.NoError(t, err)
	assert.Equal(t, "DLV-ART-20250830-002", n)

	n, err = NextNumber("DLV-ART-20250830", "DLV-ART-20250830-099")
	require.NoError(t, err)
	assert.Equal(t, "DLV-ART-20250830-100", n)
}

func TestNextNumber_KeepsGrowingPastPadding(t *testing.T) {
	n, err := NextNumber("DLV-ART-20250830", "DLV-ART-20250830-999")
	require.NoError(t, err)
	assert.Equal(t, "DLV-ART-20250830-1000", n)
}

func TestNextNumber_RejectsForeignPrefix(t *testing.T) {
	_, err := NextNumber("DLV-ART-20250830", "DLV-AST-20250830-001")
	require.Error(t, err)
}

func TestNextNumber_RejectsMalformed(t *testing.T) {
	_, err := NextNumber("DLV-ART-20250830", "DLV-ART-20250830-abc")
	require.Error(t, err)
}
