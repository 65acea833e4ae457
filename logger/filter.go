package logger

import (
	"net/url"
	"reflect"
	"regexp"
	"strings"
)

const (
	// DefaultMaxDepth bounds recursion into nested maps and slices
	DefaultMaxDepth = 8
	// DefaultMaskValue replaces masked values
	DefaultMaskValue = "***"
)

// FilterConfig defines which fields are masked and how
type FilterConfig struct {
	// SensitiveFields holds case-insensitive substrings of field names to mask
	SensitiveFields []string
	MaskValue       string
}

// DefaultFilterConfig masks credentials and connection strings.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "pwd",
			"secret", "token", "credential",
			"api_key", "apikey", "authorization",
		},
		MaskValue: DefaultMaskValue,
	}
}

// driver-style DSNs such as user:pass@tcp(host:3306)/db
var dsnPasswordPattern = regexp.MustCompile(`^([^:/@\s]+):([^@\s]*)@`)

// SensitiveDataFilter masks sensitive values before they reach the log writer.
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a filter; a nil config uses DefaultFilterConfig.
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString masks value when key is sensitive. Connection strings keep their
// structure with only the password replaced.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	return f.maskConnectionString(value)
}

// FilterValue masks sensitive entries inside maps and slices.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	return f.filterValue(key, value, DefaultMaxDepth)
}

// FilterFields filters every entry of a field map.
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	filtered := make(map[string]any, len(fields))
	for key, value := range fields {
		filtered[key] = f.FilterValue(key, value)
	}
	return filtered
}

func (f *SensitiveDataFilter) filterValue(key string, value any, depth int) any {
	if f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	if value == nil || depth <= 0 {
		return value
	}

	switch v := value.(type) {
	case string:
		return f.maskConnectionString(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = f.filterValue(k, inner, depth-1)
		}
		return out
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return value
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return value
	}

	out := make([]any, rv.Len())
	for i := range rv.Len() {
		out[i] = f.filterValue(key, rv.Index(i).Interface(), depth-1)
	}
	return out
}

func (f *SensitiveDataFilter) isSensitiveField(fieldName string) bool {
	if fieldName == "" {
		return false
	}
	lower := strings.ToLower(fieldName)
	for _, sensitive := range f.config.SensitiveFields {
		if strings.Contains(lower, strings.ToLower(sensitive)) {
			return true
		}
	}
	return false
}

func (f *SensitiveDataFilter) maskConnectionString(value string) string {
	if !strings.Contains(value, "@") {
		return value
	}
	if strings.Contains(value, "://") {
		parsed, err := url.Parse(value)
		if err != nil || parsed.User == nil {
			return value
		}
		if _, ok := parsed.User.Password(); !ok {
			return value
		}
		return parsed.Scheme + "://" + parsed.User.Username() + ":" + f.config.MaskValue + "@" +
			strings.SplitN(value, "@", 2)[1]
	}
	if dsnPasswordPattern.MatchString(value) {
		return dsnPasswordPattern.ReplaceAllString(value, "${1}:"+f.config.MaskValue+"@")
	}
	return value
}
