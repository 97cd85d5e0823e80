package sqlinline

import (
	"regexp"
	"strings"
	"testing"
)

var markerLine = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Every inline query carries a marker comment on its first line so log output
// can be correlated back to the exact statement. A malformed marker would make
// the runner execute the comment as part of the query text.
func TestEveryQueryCarriesValidMarker(t *testing.T) {
	queries := map[string]string{
		"QInsertJob":               QInsertJob,
		"QPatchJob":                QPatchJob,
		"QSelectJobByID":           QSelectJobByID,
		"QSelectJobsByStatus":      QSelectJobsByStatus,
		"QDeleteJob":               QDeleteJob,
		"QInsertImage":             QInsertImage,
		"QInsertImageFavorite":     QInsertImageFavorite,
		"QImageExistsByRemoteID":   QImageExistsByRemoteID,
		"QSelectImagesByJob":       QSelectImagesByJob,
		"QSelectImageByID":         QSelectImageByID,
		"QInsertImageRequest":      QInsertImageRequest,
		"QSelectImageRequestByJob": QSelectImageRequestByJob,
		"QSelectIntegrationToken":  QSelectIntegrationToken,
		"QUpsertIntegrationToken":  QUpsertIntegrationToken,
	}

	seen := make(map[string]string)
	for name, query := range queries {
		lines := strings.Split(strings.TrimSpace(query), "\n")
		if len(lines) < 2 {
			t.Errorf("%s: query has no body", name)
			continue
		}
		marker := strings.TrimSpace(lines[0])
		if !markerLine.MatchString(marker) {
			t.Errorf("%s: first line %q is not a valid marker", name, marker)
			continue
		}
		if prev, dup := seen[marker]; dup {
			t.Errorf("%s: marker reused from %s", name, prev)
		}
		seen[marker] = name
	}
}
