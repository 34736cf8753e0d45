package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, Indonesian, Parse(""))
	assert.Equal(t, Indonesian, Parse("id"))
	assert.Equal(t, English, Parse("en-US,en;q=0.9"))
	assert.Equal(t, Indonesian, Parse("not a tag;;"))
}

func TestSprintf(t *testing.T) {
	assert.Equal(t, "Maa Shaa Allah! Tanamanmu tumbuh menjadi Tunas!", Sprintf(GardenLevelUp, "Tunas"))
	assert.Equal(t, "Selamat datang di komunitas General!", Sprintf(CommunityWelcome, "General"))
	assert.Equal(t, "Maa Shaa Allah! Your plant grew into Tunas!", Printer(English).Sprintf(GardenLevelUp, "Tunas"))
}
