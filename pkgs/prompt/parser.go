package prompt

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

var (
	// variablePattern matches {{ variable }} syntax
	variablePattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_\.]*)\s*\}\}`)

	metaPattern   = regexp.MustCompile(`(?s)<meta[^>]*>.*?</meta>`)
	systemPattern = regexp.MustCompile(`(?s)<system-msg>(.*?)</system-msg>`)
	userPattern   = regexp.MustCompile(`(?s)<user-msg>(.*?)</user-msg>`)
	rootPattern   = regexp.MustCompile(`(?s)^\s*<poml>(.*)</poml>\s*$`)

	varsPattern    = regexp.MustCompile(`(?s)<variables>(.*?)</variables>`)
	varElemPattern = regexp.MustCompile(`<var\s+([^>]+?)/?>`)
	attrPattern    = regexp.MustCompile(`([a-zA-Z]+)\s*=\s*"([^"]*)"`)
)

// Parser handles POML template parsing
type Parser struct{}

// NewParser creates a new POML parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses a POML template string
func (p *Parser) Parse(poml string) (*Template, error) {
	template := &Template{
		Raw:       poml,
		Variables: make(map[string]*Variable),
	}

	if err := p.extractMetadata(template); err != nil {
		return nil, fmt.Errorf("failed to extract metadata: %w", err)
	}

	body := metaPattern.ReplaceAllString(poml, "")
	if m := rootPattern.FindStringSubmatch(body); m != nil {
		body = m[1]
	}

	system := systemPattern.FindStringSubmatch(body)
	user := userPattern.FindStringSubmatch(body)
	switch {
	case system == nil && user == nil:
		template.User = strings.TrimSpace(body)
	default:
		if system != nil {
			template.System = strings.TrimSpace(system[1])
		}
		if user != nil {
			template.User = strings.TrimSpace(user[1])
		}
	}

	if template.System == "" && template.User == "" {
		return nil, &ValidationError{Field: "body", Message: "template has no content"}
	}

	p.extractVariablesFromContent(template, template.System)
	p.extractVariablesFromContent(template, template.User)

	return template, nil
}

// extractMetadata extracts and parses the meta element
func (p *Parser) extractMetadata(template *Template) error {
	metaMatch := metaPattern.FindString(template.Raw)
	if metaMatch == "" {
		return nil
	}

	var meta Meta
	if err := xml.Unmarshal([]byte(metaMatch), &meta); err != nil {
		// Meta with mixed content does not unmarshal; fall back to
		// reading the <var> elements directly.
		return p.extractVariablesManually(template, metaMatch)
	}

	for i := range meta.Variables.Vars {
		v := &meta.Variables.Vars[i]
		if v.Name == "" {
			return &ValidationError{Field: "meta", Message: "variable missing name attribute"}
		}
		if v.Type == "" {
			v.Type = VarTypeString
		}
		template.Variables[v.Name] = v
	}

	return nil
}

// extractVariablesManually reads <var> attributes with regular expressions
// when the meta element is not well-formed XML.
func (p *Parser) extractVariablesManually(template *Template, metaContent string) error {
	varMatch := varsPattern.FindStringSubmatch(metaContent)
	if len(varMatch) < 2 {
		return nil
	}

	for _, match := range varElemPattern.FindAllStringSubmatch(varMatch[1], -1) {
		v, err := p.parseVarAttributes(match[1])
		if err != nil {
			return err
		}
		template.Variables[v.Name] = v
	}

	return nil
}

// parseVarAttributes parses attributes from a var element
func (p *Parser) parseVarAttributes(attrs string) (*Variable, error) {
	v := &Variable{Type: VarTypeString}

	for _, m := range attrPattern.FindAllStringSubmatch(attrs, -1) {
		switch m[1] {
		case "name":
			v.Name = m[2]
		case "required":
			v.Required = m[2] == "true"
		case "default":
			v.Default = m[2]
		case "type":
			v.Type = VarType(m[2])
		case "description":
			v.Description = m[2]
		}
	}

	if v.Name == "" {
		return nil, fmt.Errorf("variable missing name attribute")
	}
	return v, nil
}

// extractVariablesFromContent registers every {{ variable }} not declared in meta
func (p *Parser) extractVariablesFromContent(template *Template, content string) {
	for _, match := range variablePattern.FindAllStringSubmatch(content, -1) {
		name := match[1]
		if _, exists := template.Variables[name]; !exists {
			template.Variables[name] = &Variable{Name: name, Type: VarTypeString}
		}
	}
}

// GetRequiredVariables returns all required variables
func (p *Parser) GetRequiredVariables(template *Template) []*Variable {
	var required []*Variable
	for _, v := range template.Variables {
		if v.Required {
			required = append(required, v)
		}
	}
	return required
}
