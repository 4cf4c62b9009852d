package picker

import "github.com/japaniel/tossa/pkg/phrase"

// buckets groups phrases by primary tag. keys keeps first-seen order so a
// seeded Source gives reproducible picks.
type buckets struct {
	keys    []phrase.Tag
	members map[phrase.Tag][]phrase.Phrase
}

func bucketByIntent(pool []phrase.Phrase) buckets {
	b := buckets{members: make(map[phrase.Tag][]phrase.Phrase)}
	for _, p := range pool {
		tag := p.PrimaryTag()
		if _, ok := b.members[tag]; !ok {
			b.keys = append(b.keys, tag)
		}
		b.members[tag] = append(b.members[tag], p)
	}
	return b
}

// choose picks one intent uniformly and returns its members with the
// previous pick removed when the bucket has more than one phrase.
func (b buckets) choose(rng Source, lastID string) (phrase.Tag, []phrase.Phrase) {
	tag := b.keys[uniformIndex(rng, len(b.keys))]
	return tag, avoidID(lastID)(b.members[tag])
}
