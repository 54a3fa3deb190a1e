package codegen

import (
	"bytes"
	"sort"
	"strings"
)

type declKind int

const (
	declEnum declKind = iota
	declBase
	declEntity
)

type declBlock struct {
	name string
	kind declKind
	text string
}

// SortDeclarations reorders generated source into header, enum types, the
// base interface, then entity types. A block runs from a top-level type
// declaration, including its doc comment, up to the next one, so consts,
// vars and methods travel with their type. Enums and entities are sorted by
// name; the result does not depend on the order tables were rendered in.
func SortDeclarations(src []byte) []byte {
	lines := strings.Split(string(src), "\n")

	var starts []int
	for i, line := range lines {
		if !strings.HasPrefix(line, "type ") {
			continue
		}
		start := i
		for start > 0 && strings.HasPrefix(lines[start-1], "//") {
			start--
		}
		starts = append(starts, start)
	}
	if len(starts) == 0 {
		return src
	}

	header := strings.Join(lines[:starts[0]], "\n")
	var enums, bases, entities []declBlock
	for k, start := range starts {
		end := len(lines)
		if k+1 < len(starts) {
			end = starts[k+1]
		}
		block := parseBlock(lines[start:end])
		switch block.kind {
		case declBase:
			bases = append(bases, block)
		case declEntity:
			entities = append(entities, block)
		default:
			enums = append(enums, block)
		}
	}

	byName := func(blocks []declBlock) {
		sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].name < blocks[j].name })
	}
	byName(enums)
	byName(entities)

	var out bytes.Buffer
	out.WriteString(strings.TrimRight(header, "\n"))
	out.WriteString("\n")
	for _, group := range [][]declBlock{enums, bases, entities} {
		for _, b := range group {
			out.WriteString("\n")
			out.WriteString(b.text)
			out.WriteString("\n")
		}
	}
	return out.Bytes()
}

func parseBlock(lines []string) declBlock {
	b := declBlock{text: strings.TrimRight(strings.Join(lines, "\n"), "\n\t ")}
	for _, line := range lines {
		if !strings.HasPrefix(line, "type ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 1 {
			b.name = fields[1]
		}
		switch {
		case strings.Contains(line, " interface {"):
			b.kind = declBase
		case strings.Contains(line, " struct {"):
			b.kind = declEntity
		default:
			b.kind = declEnum
		}
		break
	}
	return b
}
