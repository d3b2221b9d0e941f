package services

import "errors"

// Domain errors. Handlers map these onto HTTP statuses; everything else is a
// 500.
var (
	// ErrDocumentNotFound is returned when a document ID does not exist or
	// belongs to another user.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNoExtractableText is returned when a PDF parses but yields no
	// usable text on any page.
	ErrNoExtractableText = errors.New("no extractable text in document")

	// ErrDocumentNotReady is returned when a search or quiz is requested
	// against a document that has not finished processing.
	ErrDocumentNotReady = errors.New("document is not ready")

	// ErrInvalidPDF is returned when an upload is not a parseable PDF.
	ErrInvalidPDF = errors.New("file is not a valid PDF")

	// ErrQuizNotFound is returned for submissions against unknown quizzes.
	ErrQuizNotFound = errors.New("quiz not found")
)
