package world

// ContentMain is the virtual path of the main file in content mode.
const ContentMain = "/<content>"

// Input selects where the main source comes from. It is either a
// ContentInput or a FileInput.
type Input interface {
	isInput()
}

// ContentInput compiles literal source text. There is no project root, so
// only package files can be imported.
type ContentInput struct {
	Text string
}

// FileInput compiles a file inside a project root. An empty Root means the
// entry's directory.
type FileInput struct {
	Entry string
	Root  string
}

func (ContentInput) isInput() {}
func (FileInput) isInput()    {}
