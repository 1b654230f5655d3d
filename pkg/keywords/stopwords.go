package keywords

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed stopwords.yaml
var stopwordsYAML []byte

// Stoplist is a set of words never used as keywords on their own.
type Stoplist struct {
	Terms []string `yaml:"terms"`

	set map[string]struct{}
}

// ParseStoplist decodes a YAML document with a top-level "terms" list.
func ParseStoplist(data []byte) (*Stoplist, error) {
	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("parsing stoplist: %w", err)
	}

	sl.set = make(map[string]struct{}, len(sl.Terms))
	for _, term := range sl.Terms {
		sl.set[strings.ToLower(strings.TrimSpace(term))] = struct{}{}
	}
	return &sl, nil
}

var english = sync.OnceValue(func() *Stoplist {
	sl, err := ParseStoplist(stopwordsYAML)
	if err != nil {
		panic(err)
	}
	return sl
})

// English returns the embedded English stoplist.
func English() *Stoplist {
	return english()
}

func (s *Stoplist) Contains(term string) bool {
	_, ok := s.set[term]
	return ok
}
