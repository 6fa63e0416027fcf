package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// 严格字段集解析错误
var (
	ErrMalformedBody = errors.New("请求体格式错误")
	ErrMissingFields = errors.New("缺少必填字段")
	ErrInvalidFields = errors.New("包含不允许的字段")
)

// decodeObject 将请求体解析为顶层键到原始值的映射
func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, ErrMalformedBody
	}
	return obj, nil
}

// checkKeys 校验键集合：required 必须全部出现，出现的键必须都在 allowed 中
func checkKeys(obj map[string]json.RawMessage, required, allowed []string) error {
	for _, k := range required {
		if _, ok := obj[k]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingFields, k)
		}
	}
	permitted := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		permitted[k] = struct{}{}
	}
	for k := range obj {
		if _, ok := permitted[k]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidFields, k)
		}
	}
	return nil
}

func decodeString(raw json.RawMessage, field string) (string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", fmt.Errorf("%w: %s 不能为 null", ErrMalformedBody, field)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s 必须为字符串", ErrMalformedBody, field)
	}
	return s, nil
}

func decodeOptionalString(obj map[string]json.RawMessage, field string) (*string, error) {
	raw, ok := obj[field]
	if !ok {
		return nil, nil
	}
	s, err := decodeString(raw, field)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
