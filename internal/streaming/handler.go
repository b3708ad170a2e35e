package streaming

import (
	"net/http"
	"os"
	"path/filepath"

	"slidecast/internal/blob"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// ServeFile streams a media blob with range-request support, which the
// audio element needs for seeking back to zero on loop restarts.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) {
	file, err := os.Open(filePath)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		http.Error(w, "Cannot read file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", blob.ContentType(filePath))
	w.Header().Set("Accept-Ranges", "bytes")

	http.ServeContent(w, r, filepath.Base(filePath), stat.ModTime(), file)
}
