package documents

// BlockType tells text blocks from image descriptions
type BlockType string

const (
	BlockText             BlockType = "text"
	BlockImageDescription BlockType = "image_description"
)

// ContentBlock is one unit of extracted content. Page is 1-based.
type ContentBlock struct {
	Type      BlockType
	Content   string
	Page      int
	Source    string
	ImagePath string
}
