package workflow

// Kind identifies one of the fixed analysis step variants. The set is
// closed: execution logic switches over it exhaustively.
type Kind string

const (
	KindThemeGeneration Kind = "theme_generation"
	KindThemeAllocation Kind = "theme_allocation"
	KindThemeExtraction Kind = "theme_extraction"
	KindSentiment       Kind = "sentiment"
	KindCluster         Kind = "cluster"
	KindEmbeddings      Kind = "embeddings"
)

// Kinds lists every valid step kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindThemeGeneration,
		KindThemeAllocation,
		KindThemeExtraction,
		KindSentiment,
		KindCluster,
		KindEmbeddings,
	}
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	switch k {
	case KindThemeGeneration, KindThemeAllocation, KindThemeExtraction,
		KindSentiment, KindCluster, KindEmbeddings:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }
