package lifecycle

import (
	"encoding/json"
	"time"

	"github.com/nodalmind/memoria/internal/compression"
	"github.com/nodalmind/memoria/pkg/types"
)

// ApplyTransition moves m to newState at instant now, recording the change
// in m.Metadata.transitions and running the entering-state side effects
// (spec.md §4.10 transition side effects). Returns whether a transition
// actually occurred.
func ApplyTransition(m *types.Memory, newState types.State, now time.Time) bool {
	if m.State == newState {
		return false
	}
	from := m.State
	m.State = newState
	m.AppendTransition(from, newState, now)

	if newState == types.StateArchived && !m.IsCompressed {
		compressContent(m)
	}
	if newState == types.StateExpired {
		deletedAt := now
		m.DeletedAt = &deletedAt
	}
	return true
}

var memoryTypeToContentType = map[types.MemoryType]compression.ContentType{
	types.TypeConversation: compression.TypeConversation,
}

// compressContent runs C5 type-aware compression at its default ratio over
// m's serialized content and replaces it with the compressed form, marking
// IsCompressed
// (spec.md §4.10: "On entering archived while is_compressed=false: invoke
// C5 compression").
func compressContent(m *types.Memory) {
	raw, err := json.Marshal(m.Content)
	if err != nil {
		return
	}
	contentType, ok := memoryTypeToContentType[m.Type]
	if !ok {
		contentType = compression.TypeGeneric
	}
	result := compression.Compress(string(raw), contentType, 0)

	m.Content = map[string]interface{}{
		"compressed":        true,
		"text":              result.Text,
		"original_size":     result.OriginalSize,
		"compressed_size":   result.CompressedSize,
		"compression_ratio": result.CompressionRatio,
	}
	m.IsCompressed = true
}
