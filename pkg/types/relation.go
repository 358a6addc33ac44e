package types

import "time"

// RelationType enumerates the canonical directed-edge vocabulary between
// memories (spec.md §3, MemoryRelation). Unknown values are normalized to
// RelRelatesTo by NormalizeRelationType (called from internal/facade and
// internal/engine).
type RelationType string

const (
	RelReferences  RelationType = "references"
	RelContradicts RelationType = "contradicts"
	RelSupports    RelationType = "supports"
	RelExtends     RelationType = "extends"
	RelCauses      RelationType = "causes"
	RelCausedBy    RelationType = "caused_by"
	RelPrecedes    RelationType = "precedes"
	RelFollows     RelationType = "follows"
	RelPartOf      RelationType = "part_of"
	RelContains    RelationType = "contains"
	RelRelatesTo   RelationType = "relates_to"
)

// ValidRelationTypes lists the canonical relation vocabulary.
var ValidRelationTypes = []RelationType{
	RelReferences, RelContradicts, RelSupports, RelExtends, RelCauses,
	RelCausedBy, RelPrecedes, RelFollows, RelPartOf, RelContains, RelRelatesTo,
}

// IsValidRelationType reports whether t is one of ValidRelationTypes.
func IsValidRelationType(t RelationType) bool {
	for _, v := range ValidRelationTypes {
		if v == t {
			return true
		}
	}
	return false
}

// NormalizeRelationType maps unknown relation types to RelRelatesTo.
func NormalizeRelationType(t RelationType) RelationType {
	if IsValidRelationType(t) {
		return t
	}
	return RelRelatesTo
}

// reverseRelation maps a relation type to its inverse for bidirectional
// relation creation (spec.md §4.8 createBidirectionalRelation:
// extends↔references, all others identity).
var reverseRelation = map[RelationType]RelationType{
	RelExtends:    RelReferences,
	RelReferences: RelExtends,
}

// ReverseRelationType returns the inverse of t, or t itself for every type
// without a defined inverse.
func ReverseRelationType(t RelationType) RelationType {
	if rev, ok := reverseRelation[t]; ok {
		return rev
	}
	return t
}

// MemoryRelation is a directed edge between two memories.
type MemoryRelation struct {
	ID           string       `json:"id"`
	FromMemoryID string       `json:"from_memory_id"`
	ToMemoryID   string       `json:"to_memory_id"`
	RelationType RelationType `json:"relation_type"`
	Strength     float64      `json:"strength"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
