package chat

// SourceKind is the closed set of context source kinds. The formatting
// boundary switches exhaustively over these; adding a kind means
// updating that switch.
type SourceKind string

const (
	SourceConversation SourceKind = "conversation"
	SourceJournal      SourceKind = "journal"
	SourceMemory       SourceKind = "memory"
	SourceAnalysis     SourceKind = "analysis"
)

// ContextSourceRef tags one prompt segment with its provenance so the
// caller can show what informed a reply.
type ContextSourceRef struct {
	Kind    SourceKind `json:"kind"`
	Title   string     `json:"title"`
	Preview string     `json:"preview"`
}

// PromptBundle is the assembled prompt plus the manifest of sources
// that contributed segments to it.
type PromptBundle struct {
	Prompt  string             `json:"prompt"`
	Sources []ContextSourceRef `json:"sources"`
}
