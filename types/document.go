package types

// PageContent is a single page of pre-extracted document text. Pages are
// 1-based and supplied in order by the PDF extraction frontend.
type PageContent struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Section content types reported by the structure extractor.
const (
	ContentTypeDefinitions = "definitions"
	ContentTypeExamples    = "examples"
	ContentTypeOverview    = "overview"
	ContentTypeMixed       = "mixed"
)

// SectionInfo describes one logical section of a document. StartPage and
// EndPage are 1-based and inclusive.
type SectionInfo struct {
	Title       string `json:"title"`
	StartPage   int    `json:"start_page"`
	EndPage     int    `json:"end_page"`
	ContentType string `json:"content_type"`
}

// DocumentStructure is the result of structural analysis. Built once per
// document and never mutated afterward.
type DocumentStructure struct {
	Subject      string        `json:"subject"`
	DocumentType string        `json:"document_type"`
	Sections     []SectionInfo `json:"sections"`
}

// KnowledgePoint is one extracted fact from a lecture document. Title acts
// as the case-insensitive dedup key within an extraction run.
type KnowledgePoint struct {
	Title       string   `json:"title"`
	Definition  string   `json:"definition"`
	KeyFormulas []string `json:"key_formulas,omitempty"`
	KeyConcepts []string `json:"key_concepts,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	SourcePages []int    `json:"source_pages,omitempty"`
}

// LectureChunk is a persisted knowledge point.
type LectureChunk struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	DocumentID  string    `bson:"document_id" json:"document_id"`
	Title       string    `bson:"title" json:"title"`
	Definition  string    `bson:"definition" json:"definition"`
	KeyFormulas []string  `bson:"key_formulas,omitempty" json:"key_formulas,omitempty"`
	KeyConcepts []string  `bson:"key_concepts,omitempty" json:"key_concepts,omitempty"`
	Examples    []string  `bson:"examples,omitempty" json:"examples,omitempty"`
	SourcePages []int     `bson:"source_pages,omitempty" json:"source_pages,omitempty"`
	Embedding   []float32 `bson:"embedding,omitempty" json:"-"`
	CreatedAt   int64     `bson:"created_at" json:"created_at"`
}

// StoredRecord is a lenient read-side view of a persisted item used as the
// dedup corpus. Embedding is left undecoded because older records may carry
// it as a JSON string or not at all; the dedup engine decodes defensively.
type StoredRecord struct {
	ID        string      `bson:"_id"`
	Content   string      `bson:"content"`
	Embedding interface{} `bson:"embedding"`
}

// TutorDocument is the parent record an ingestion run attaches to.
type TutorDocument struct {
	ID          string             `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Subject     string             `bson:"subject" json:"subject"`
	Kind        string             `bson:"kind" json:"kind"`
	Outline     *DocumentStructure `bson:"outline,omitempty" json:"outline,omitempty"`
	ContentHash string             `bson:"content_hash,omitempty" json:"content_hash,omitempty"`
	CreatedAt   int64              `bson:"created_at" json:"created_at"`
	UpdatedAt   int64              `bson:"updated_at" json:"updated_at"`
}

// Document kinds accepted by the ingest endpoints.
const (
	DocumentKindLecture    = "lecture"
	DocumentKindExam       = "exam"
	DocumentKindAssignment = "assignment"
)
