// Package fieldblock parses blocks of "Name: value" lines with RFC 5322 style
// folding, such as message headers and the field groups of a
// message/delivery-status part.
package fieldblock

import (
	"bufio"
	"strings"
)

type keyIndex struct {
	index int    // position in Block.fields
	name  string // original field-name
}

type field struct {
	name   string   // original field-name
	values []string // folded lines
}

// Block is one parsed group of fields. Lookups are case-insensitive and
// return the first occurrence of a name.
type Block struct {
	keys   map[string]keyIndex // lowercased field-name set
	fields []field             // field order preserved
}

// Parse reads every field of text. Lines that are neither a field nor a
// continuation are ignored, and so is a continuation with no field before it.
func Parse(text string) Block {
	return newBlock(parseFields(lines(text)))
}

// SplitGroups splits text on blank lines and parses each group. Groups with
// no recognizable field are dropped.
func SplitGroups(text string) []Block {
	var (
		groups  []Block
		pending []string
	)
	flush := func() {
		if fields := parseFields(pending); len(fields) > 0 {
			groups = append(groups, newBlock(fields))
		}
		pending = pending[:0]
	}
	for _, line := range lines(text) {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		pending = append(pending, line)
	}
	flush()
	return groups
}

func newBlock(fields []field) Block {
	keys := map[string]keyIndex{}
	for i, f := range fields {
		key := strings.ToLower(f.name)
		if _, exists := keys[key]; !exists {
			keys[key] = keyIndex{index: i, name: f.name}
		}
	}
	return Block{keys: keys, fields: fields}
}

func lines(text string) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		out = append(out, strings.TrimRight(scanner.Text(), "\r"))
	}
	return out
}

func parseFields(lines []string) (fields []field) {
	current := -1
	for _, line := range lines {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			// folded line
			if current >= 0 {
				fields[current].values = append(fields[current].values, strings.TrimLeft(line, " \t"))
			}
		} else if i := strings.Index(line, ":"); i > 0 {
			fields = append(fields, field{
				name:   strings.TrimSpace(line[:i]),
				values: []string{strings.TrimSpace(line[i+1:])},
			})
			current = len(fields) - 1
		} else {
			current = -1
		}
	}
	return
}

// Lookup returns the unfolded value of the named field.
func (b Block) Lookup(name string) (string, bool) {
	k, exists := b.keys[strings.ToLower(name)]
	if !exists || k.index < 0 || k.index >= len(b.fields) {
		return "", false
	}
	return strings.TrimSpace(strings.Join(b.fields[k.index].values, " ")), true
}

// Get returns the unfolded value of the named field, or "" when absent.
func (b Block) Get(name string) string {
	v, _ := b.Lookup(name)
	return v
}

// Has reports whether the named field is present.
func (b Block) Has(name string) bool {
	_, exists := b.keys[strings.ToLower(name)]
	return exists
}

// Names lists field names in their original spelling and order.
func (b Block) Names() []string {
	names := make([]string, 0, len(b.fields))
	for _, f := range b.fields {
		names = append(names, f.name)
	}
	return names
}

func (b Block) Len() int { return len(b.fields) }
