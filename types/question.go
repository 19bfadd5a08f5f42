package types

// ParsedQuestion is one exam question extracted by the LLM.
type ParsedQuestion struct {
	QuestionNumber  int      `json:"question_number"`
	Content         string   `json:"content"`
	Options         []string `json:"options,omitempty"`
	ReferenceAnswer string   `json:"reference_answer,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
	Points          float64  `json:"points,omitempty"`
	Difficulty      string   `json:"difficulty,omitempty"`
	SourcePage      int      `json:"source_page,omitempty"`
}

// ExamQuestion is a persisted exam question.
type ExamQuestion struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	PaperID         string    `bson:"paper_id" json:"paper_id"`
	QuestionNumber  int       `bson:"question_number" json:"question_number"`
	Content         string    `bson:"content" json:"content"`
	Options         []string  `bson:"options,omitempty" json:"options,omitempty"`
	ReferenceAnswer string    `bson:"reference_answer,omitempty" json:"reference_answer,omitempty"`
	Explanation     string    `bson:"explanation,omitempty" json:"explanation,omitempty"`
	Points          float64   `bson:"points,omitempty" json:"points,omitempty"`
	Difficulty      string    `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	SourcePage      int       `bson:"source_page,omitempty" json:"source_page,omitempty"`
	Embedding       []float32 `bson:"embedding,omitempty" json:"-"`
	CreatedAt       int64     `bson:"created_at" json:"created_at"`
}

// AssignmentItem is one assignment question extracted by the LLM.
// ParentIndex, when set, points at another item in the same extraction batch
// by position, supporting sub-question nesting ("1" containing "1a", "1b").
// It is resolved to a persisted parent ID during the save phase.
type AssignmentItem struct {
	OrderNum    int      `json:"order_num"`
	Content     string   `json:"content"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	Score       float64  `json:"score,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	SourcePages []int    `json:"source_pages,omitempty"`
	ParentIndex *int     `json:"parent_index,omitempty"`
}

// AssignmentRecord is a persisted assignment item. ParentID is empty for
// root items, including children promoted to roots when their declared
// parent could not be resolved.
type AssignmentRecord struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	AssignmentID string    `bson:"assignment_id" json:"assignment_id"`
	ParentID     string    `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	OrderNum     int       `bson:"order_num" json:"order_num"`
	Content      string    `bson:"content" json:"content"`
	Options      []string  `bson:"options,omitempty" json:"options,omitempty"`
	Answer       string    `bson:"answer,omitempty" json:"answer,omitempty"`
	Explanation  string    `bson:"explanation,omitempty" json:"explanation,omitempty"`
	Score        float64   `bson:"score,omitempty" json:"score,omitempty"`
	Difficulty   string    `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	SourcePages  []int     `bson:"source_pages,omitempty" json:"source_pages,omitempty"`
	Embedding    []float32 `bson:"embedding,omitempty" json:"-"`
	CreatedAt    int64     `bson:"created_at" json:"created_at"`
}
