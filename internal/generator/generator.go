package generator

import (
	"math/rand"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/moamenhredeen/apihacker/internal/models"
)

// Bounds of every synthesized value, inclusive
const (
	MinValue = 1
	MaxValue = 100
)

// placeholderPattern is the identifier heuristic for path placeholders: a brace
// segment whose name ends in "key", "Key" or "Id", such as {userId}, {apikey} or {apiKey}.
// The match is greedy, so in "/a/{fooId}/b/{barId}" the whole "{fooId}/b/{barId}"
// span is one match and collapses into a single number.
var placeholderPattern = regexp.MustCompile(`\{.*(key|Key|Id)\}`)

// Generator produces synthetic request values. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a new generator instance
func NewGenerator() *Generator {
	return NewGeneratorWithSeed(time.Now().UnixNano())
}

// NewGeneratorWithSeed creates a generator with a fixed seed
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Value returns a pseudo-random integer in [MinValue, MaxValue]
func (g *Generator) Value() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return MinValue + g.rng.Intn(MaxValue-MinValue+1)
}

// SynthesizeBody builds a request body with one random value per parameter name.
// Parameters sharing a name overwrite each other, the last declared one wins.
// It returns nil when there are no parameters.
func (g *Generator) SynthesizeBody(params []models.Parameter) map[string]int {
	if len(params) == 0 {
		return nil
	}

	body := make(map[string]int, len(params))
	for _, p := range params {
		body[p.Name] = g.Value()
	}
	return body
}

// ResolvePath replaces the first placeholder matching the identifier heuristic with a
// random number. Other placeholders, such as {name} or {slug}, are left as they are.
func (g *Generator) ResolvePath(template string) string {
	loc := placeholderPattern.FindStringIndex(template)
	if loc == nil {
		return template
	}
	return template[:loc[0]] + strconv.Itoa(g.Value()) + template[loc[1]:]
}

// HasIdentifierPlaceholder reports whether ResolvePath would rewrite the template
func HasIdentifierPlaceholder(template string) bool {
	return placeholderPattern.MatchString(template)
}
