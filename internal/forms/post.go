package forms

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// PostInput is the raw post submission. Image is read from the multipart form separately.
type PostInput struct {
	Text  string                `form:"text" validate:"required"`
	Group string                `form:"group" validate:"omitempty,numeric"`
	Image *multipart.FileHeader `form:"-"`
}

// ImageUpload is an accepted image file.
type ImageUpload struct {
	Filename    string
	ContentType string
	Header      *multipart.FileHeader
}

// PostData is a validated post submission.
type PostData struct {
	Text    string
	GroupID *uint
	Image   *ImageUpload
}

// ValidatePost trims the text, requires it to be non-empty, parses the optional group id
// and checks that an attached file really is an image.
func ValidatePost(in PostInput) Result[PostData] {
	in.Text = strings.TrimSpace(in.Text)
	in.Group = strings.TrimSpace(in.Group)

	errs := check(in)

	data := PostData{Text: in.Text}
	if in.Group != "" && !hasField(errs, "group") {
		id, err := strconv.ParseUint(in.Group, 10, 32)
		if err != nil || id == 0 {
			errs = append(errs, FieldError{Field: "group", Message: "Select a valid choice."})
		} else {
			gid := uint(id)
			data.GroupID = &gid
		}
	}

	if in.Image != nil {
		upload, msg := sniffImage(in.Image)
		if msg != "" {
			errs = append(errs, FieldError{Field: "image", Message: msg})
		} else {
			data.Image = upload
		}
	}

	if len(errs) > 0 {
		return invalid[PostData](errs...)
	}
	return ok(data)
}

const (
	msgNotImage  = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	msgEmptyFile = "The submitted file is empty."
)

// sniffImage returns the accepted upload, or a user-facing message when the file is not an image.
func sniffImage(fh *multipart.FileHeader) (*ImageUpload, string) {
	if fh.Size == 0 {
		return nil, msgEmptyFile
	}

	f, err := fh.Open()
	if err != nil {
		return nil, msgNotImage
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, msgNotImage
	}
	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		return nil, msgNotImage
	}
	return &ImageUpload{Filename: fh.Filename, ContentType: contentType, Header: fh}, ""
}

func hasField(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}
