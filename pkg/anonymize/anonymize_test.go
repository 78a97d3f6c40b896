package anonymize

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var pseudonymPattern = regexp.MustCompile(`^[A-Z][a-z]+ [A-Z][a-z]+ \d{2}$`)

func TestDisplayNamePassthrough(t *testing.T) {
	assert.Equal(t, "Aisha Rahman", DisplayName("stu-1", false, "Aisha Rahman"))
}

func TestDisplayNameIsDeterministic(t *testing.T) {
	first := DisplayName("stu-1", true, "Aisha Rahman")
	second := DisplayName("stu-1", true, "Someone Else")
	assert.Equal(t, first, second)
	assert.NotEqual(t, "Aisha Rahman", first)
	assert.Regexp(t, pseudonymPattern, first)
}

func TestPseudonymSpreadsIDs(t *testing.T) {
	seen := map[string]struct{}{}
	for _, id := range []string{"stu-1", "stu-2", "stu-3", "stu-4", "stu-5", "stu-6"} {
		seen[Pseudonym(id)] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}
