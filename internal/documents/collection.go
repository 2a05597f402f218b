package documents

// Collection names one kind of owner-scoped document and where it lives.
type Collection struct {
	// Name labels logs and metrics.
	Name string
	// Table is the backing SQL table.
	Table string
	// Route is the path segment under /api.
	Route string
	// Label is the noun used in client messages.
	Label string
}

var (
	Resumes      = Collection{Name: "resumes", Table: "resumes", Route: "/resumes", Label: "Resume"}
	CoverLetters = Collection{Name: "coverLetters", Table: "cover_letters", Route: "/letters", Label: "Cover letter"}
)

// Collections lists every collection the service exposes.
func Collections() []Collection {
	return []Collection{Resumes, CoverLetters}
}

const (
	opCreate = "create"
	opGet    = "get"
	opList   = "list"
	opUpdate = "update"
	opDelete = "delete"
)

func (c Collection) msgRequired(op string) string {
	return "Title and data are required to " + op + " a " + lowerFirst(c.Label) + "."
}

func (c Collection) msgNotFound(op string) string {
	switch op {
	case opUpdate, opDelete:
		return c.Label + " not found or you do not have access to " + op + "."
	default:
		return c.Label + " not found or you do not have access."
	}
}

func (c Collection) msgFailed(op string) string {
	switch op {
	case opList:
		return "Failed to retrieve " + lowerFirst(c.Label) + "s."
	case opGet:
		return "Failed to retrieve " + lowerFirst(c.Label) + "."
	default:
		return "Failed to " + op + " " + lowerFirst(c.Label) + "."
	}
}

func (c Collection) msgUpdated() string {
	return c.Label + " updated successfully."
}

func (c Collection) msgDeleted() string {
	return c.Label + " deleted successfully."
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
