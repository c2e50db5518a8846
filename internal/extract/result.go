package extract

// Status classifies the outcome for one matched image.
type Status string

const (
    StatusWritten     Status = "written"
    StatusDecodeError Status = "decode_error"
    StatusIOError     Status = "io_error"
)

// Result is the outcome for one image whose source was a supported data URI.
type Result struct {
    // Index is the position of the element among all <img src> elements.
    Index    int
    MIME     string
    Detected string
    Path     string
    Bytes    int
    SHA256   string
    Status   Status
    Err      error
}

// Report aggregates one extraction run.
type Report struct {
    OutputDir string
    // Images counts every <img src> seen, matched or not.
    Images  int
    Results []Result
    // DirErr is set when the output directory could not be created.
    DirErr error
}

// Written returns the number of images saved to disk.
func (r Report) Written() int { return r.count(StatusWritten) }

// Failed returns the number of matched images left in place.
func (r Report) Failed() int { return len(r.Results) - r.Written() }

// Unmatched returns the number of images whose source was not touched.
func (r Report) Unmatched() int { return r.Images - len(r.Results) }

func (r Report) count(s Status) int {
    n := 0
    for _, res := range r.Results {
        if res.Status == s {
            n++
        }
    }
    return n
}

// Errors returns the per-image errors in document order.
func (r Report) Errors() []error {
    var out []error
    for _, res := range r.Results {
        if res.Err != nil {
            out = append(out, res.Err)
        }
    }
    return out
}
