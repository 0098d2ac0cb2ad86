package processor

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/snappy-loop/podcasts/internal/models"
)

const maxTopicSlugLength = 50

var (
	nonWordChars  = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s-]`)
	separatorRuns = regexp.MustCompile(`[-\s]+`)
)

// AudioFileName derives a storage-safe name such as
// "hello-world-2024_nova_20240501_120000.mp3".
func AudioFileName(topic string, voice models.Voice, ts time.Time, format string) string {
	slug := nonWordChars.ReplaceAllString(strings.ToLower(topic), "")
	slug = separatorRuns.ReplaceAllString(slug, "-")
	if r := []rune(slug); len(r) > maxTopicSlugLength {
		slug = string(r[:maxTopicSlugLength])
	}
	if format == "" {
		format = "mp3"
	}
	return fmt.Sprintf("%s_%s_%s.%s", slug, voice, ts.Format("20060102_150405"), format)
}
