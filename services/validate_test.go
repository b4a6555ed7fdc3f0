package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-scraper/models"
)

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{CorruptedSentinel, true},
		{"Unknown", true},
		{"UNKNOWN", true},
		{"Sofa \uFFFD\uFFFD", true},
		{"Unknown brand bicycle", false},
		{"Road bike 54cm", false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlaceholder(models.ListingRecord{Title: tt.title}))
		})
	}
}

func TestValidateResult(t *testing.T) {
	t.Run("nil result", func(t *testing.T) {
		_, err := ValidateResult(nil)
		assert.ErrorIs(t, err, ErrNoRecords)
	})

	t.Run("only placeholders", func(t *testing.T) {
		_, err := ValidateResult(&models.ExtractionResult{Records: []models.ListingRecord{
			{Title: CorruptedSentinel}, {Title: "unknown"},
		}})
		assert.ErrorIs(t, err, ErrCorruptedOutput)
	})

	t.Run("drops placeholders", func(t *testing.T) {
		kept, err := ValidateResult(&models.ExtractionResult{Records: []models.ListingRecord{
			{Title: "Road bike 54cm"}, {Title: ""}, {Title: "Desk lamp, brass"},
		}})
		require.NoError(t, err)
		require.Len(t, kept, 2)
		assert.Equal(t, "Road bike 54cm", kept[0].Title)
		assert.Equal(t, "Desk lamp, brass", kept[1].Title)
	})
}
