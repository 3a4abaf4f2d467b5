package stream

import (
	"strconv"

	"facestream/internal/services/encoding"
)

// StaticContentType is sent with the root page.
const StaticContentType = "text/html; charset=utf-8"

var (
	notFoundResponse = []byte("HTTP/1.1 404 Not found\r\n" +
		"Cache-control: no-store\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 9\r\n\r\n" +
		"NOT FOUND")

	errorResponse = []byte("HTTP/1.1 500 Internal server error\r\n" +
		"Cache-control: no-store\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 5\r\n\r\n" +
		"ERROR")

	partTrailer = []byte("\r\n")
)

// staticResponse returns the full response, headers and body, as one buffer.
func staticResponse(contentType string, body []byte) []byte {
	head := "HTTP/1.1 200 OK\r\n" +
		"Cache-control: no-store\r\n" +
		"Content-Type: " + contentType + "\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n"
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head...)
	return append(out, body...)
}

func streamHeader(boundary string) []byte {
	return []byte("HTTP/1.1 200 OK\r\n" +
		"Cache-control: no-store\r\n" +
		"Content-Type: multipart/x-mixed-replace; boundary=\"" + boundary + "\"\r\n\r\n")
}

func partHeader(boundary string, format encoding.Format) []byte {
	return []byte("--" + boundary + "\r\n" +
		"Content-Type: " + format.ContentType() + "\r\n\r\n")
}
