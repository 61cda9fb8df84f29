package testing

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/onsi/gomega"
)

type RequestModifier func(r *http.Request)

type RequestModifiers []RequestModifier

func (r *RequestModifiers) Add(mods ...RequestModifier) {
	*r = append(*r, mods...)
}

func WithCookies(cookies ...*http.Cookie) RequestModifier {
	return func(request *http.Request) {
		for _, cookie := range cookies {
			request.AddCookie(cookie)
		}
	}
}

func WithHeader(key string, value string) RequestModifier {
	return func(request *http.Request) {
		request.Header.Set(key, value)
	}
}

type FileField struct {
	Field    string
	FileName string
	Data     []byte
}

// RequestFactory builds a request with at most one of a JSON body, a
// urlencoded form or a multipart file upload.
type RequestFactory struct {
	Method  string
	Target  string
	JSONObj interface{}
	Form    url.Values
	File    *FileField
	Mods    RequestModifiers
}

func (r RequestFactory) body() (io.Reader, string) {
	switch {
	case r.JSONObj != nil:
		buf := &bytes.Buffer{}
		err := json.NewEncoder(buf).Encode(r.JSONObj)
		gomega.ExpectWithOffset(2, err).NotTo(gomega.HaveOccurred())
		return buf, echo.MIMEApplicationJSON

	case r.File != nil:
		buf := &bytes.Buffer{}
		writer := multipart.NewWriter(buf)
		part := ExpectSuccess(writer.CreateFormFile(r.File.Field, r.File.FileName))
		ExpectSuccess(part.Write(r.File.Data))
		gomega.ExpectWithOffset(2, writer.Close()).To(gomega.Succeed())
		return buf, writer.FormDataContentType()

	case r.Form != nil:
		return strings.NewReader(r.Form.Encode()), echo.MIMEApplicationForm

	default:
		return nil, ""
	}
}

func (r RequestFactory) make(reqMaker func(string, string, io.Reader) *http.Request) *http.Request {
	body, contentType := r.body()

	request := reqMaker(r.Method, r.Target, body)
	if contentType != "" {
		request.Header.Set(echo.HeaderContentType, contentType)
	}

	for _, mod := range r.Mods {
		mod(request)
	}

	return request
}

func (r RequestFactory) MakeFake() *http.Request {
	return r.make(httptest.NewRequest)
}

func (r RequestFactory) Do(client *http.Client) (*http.Response, error) {
	makeRealRequest := func(method string, target string, body io.Reader) *http.Request {
		return ExpectSuccess(http.NewRequest(method, target, body))
	}

	if client == nil {
		client = http.DefaultClient
	}

	req := r.make(makeRealRequest)
	return client.Do(req)
}
