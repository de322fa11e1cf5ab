package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	vverrors "vpc-visualizer/internal/errors"
)

// stdinPath makes ParseFile read from standard input.
const stdinPath = "-"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire names (IpRanges) instead of Go field names (IPRanges).
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseFile reads security groups from a JSON or YAML file. Files ending in
// .yaml or .yml are read as YAML, anything else as JSON. A path of "-" reads
// JSON from standard input.
func ParseFile(path string) ([]SecurityGroup, error) {
	var (
		data []byte
		err  error
	)
	if path == stdinPath {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read security groups from %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseFromData(data)
	}
}

// ParseFromData decodes security groups from JSON. Both the
// `describe-security-groups` output object and a bare array of groups are
// accepted.
func ParseFromData(data []byte) ([]SecurityGroup, error) {
	trimmed := bytes.TrimSpace(data)

	var groups []SecurityGroup
	if bytes.HasPrefix(trimmed, []byte("[")) {
		if err := json.Unmarshal(trimmed, &groups); err != nil {
			return nil, vverrors.Wrap(vverrors.KindDecode, err, "failed to unmarshal security groups JSON")
		}
	} else {
		var out DescribeSecurityGroupsOutput
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, vverrors.Wrap(vverrors.KindDecode, err, "failed to unmarshal security groups JSON")
		}
		if out.SecurityGroups == nil {
			return nil, vverrors.New(vverrors.KindDecode, "document has no SecurityGroups field")
		}
		groups = out.SecurityGroups
	}

	if err := Validate(groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ParseYAML decodes security groups from YAML, in the same two layouts as
// ParseFromData.
func ParseYAML(data []byte) ([]SecurityGroup, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, vverrors.Wrap(vverrors.KindDecode, err, "failed to unmarshal security groups YAML")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, vverrors.New(vverrors.KindDecode, "empty YAML document")
	}

	var groups []SecurityGroup
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		if err := root.Decode(&groups); err != nil {
			return nil, vverrors.Wrap(vverrors.KindDecode, err, "failed to decode security groups YAML")
		}
	} else {
		var out DescribeSecurityGroupsOutput
		if err := root.Decode(&out); err != nil {
			return nil, vverrors.Wrap(vverrors.KindDecode, err, "failed to decode security groups YAML")
		}
		if out.SecurityGroups == nil {
			return nil, vverrors.New(vverrors.KindDecode, "document has no SecurityGroups field")
		}
		groups = out.SecurityGroups
	}

	if err := Validate(groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Validate checks that every group carries an id and that every rule lists
// all four target arrays, even when they are empty.
func Validate(groups []SecurityGroup) error {
	for i := range groups {
		if err := validate.Struct(&groups[i]); err != nil {
			return formatValidationError(i, err)
		}
	}
	return nil
}

func formatValidationError(index int, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return vverrors.Wrap(vverrors.KindDecode, err, "security group %d is malformed", index)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the Go type name that leads the namespace.
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		fields = append(fields, field)
	}
	return vverrors.New(vverrors.KindDecode, "security group %d is missing required fields: %s",
		index, strings.Join(fields, ", "))
}
