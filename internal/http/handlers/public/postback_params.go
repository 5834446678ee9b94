package public

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/postback-hub/internal/service"

	"github.com/gin-gonic/gin"
)

var (
	errPostbackBodyTooLarge = errors.New("postback body too large")
	errPostbackBodyInvalid  = errors.New("postback body invalid")
)

const defaultPostbackMaxBodyBytes int64 = 1 << 20

// parsePostbackParams 合并查询参数与请求体参数，键冲突时请求体优先
// 请求体支持 form-urlencoded、multipart 与扁平 JSON 对象。JSON null 视为未提供，
// 全为空白的请求体值不覆盖查询参数。
func parsePostbackParams(c *gin.Context, maxBodyBytes int64) (service.ParamBag, error) {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultPostbackMaxBodyBytes
	}
	bag := service.ParamBag{}
	for key, values := range c.Request.URL.Query() {
		bag[key] = append([]string(nil), values...)
	}
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return bag, nil
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var body url.Values
	var err error
	switch c.ContentType() {
	case gin.MIMEJSON:
		body, err = parseJSONBody(c.Request.Body)
	case gin.MIMEMultipartPOSTForm:
		if err = c.Request.ParseMultipartForm(maxBodyBytes); err == nil && c.Request.MultipartForm != nil {
			body = c.Request.MultipartForm.Value
		}
	case gin.MIMEPOSTForm:
		if err = c.Request.ParseForm(); err == nil {
			body = c.Request.PostForm
		}
	default:
		// 其他类型的请求体不参与参数解析
		return bag, nil
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errPostbackBodyTooLarge
		}
		if errors.Is(err, errPostbackBodyInvalid) {
			return nil, err
		}
		return nil, errors.Join(errPostbackBodyInvalid, err)
	}
	for key, values := range body {
		if _, inQuery := bag[key]; inQuery && allBlank(values) {
			continue
		}
		bag[key] = values
	}
	return bag, nil
}

func allBlank(values []string) bool {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func parseJSONBody(reader io.Reader) (url.Values, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return url.Values{}, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var payload map[string]interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, errPostbackBodyInvalid
	}
	values := make(url.Values, len(payload))
	for key, value := range payload {
		if value == nil {
			continue
		}
		if list, ok := value.([]interface{}); ok {
			for _, item := range list {
				if item == nil {
					continue
				}
				text, ok := jsonScalarString(item)
				if !ok {
					return nil, errPostbackBodyInvalid
				}
				values.Add(key, text)
			}
			continue
		}
		text, ok := jsonScalarString(value)
		if !ok {
			return nil, errPostbackBodyInvalid
		}
		values.Set(key, text)
	}
	return values, nil
}

// jsonScalarString 只接受非 null 标量，嵌套对象视为非法
func jsonScalarString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}
