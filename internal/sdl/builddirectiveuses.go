package sdl

import (
	language "github.com/hanpama/taskgraph/internal/language"
)

func (b *builder) populateDirectiveUses() error {
	// 1st pass: field-level and value-level directives
	for _, doc := range b.sourceDocs {
		for _, node := range doc.Definitions {
			b.processMemberDirectives(node)
		}
		for _, node := range doc.Extensions {
			b.processMemberDirectives(node)
		}
	}

	// 2nd pass: definition-level directives
	for _, doc := range b.sourceDocs {
		for _, node := range doc.Definitions {
			b.processDefinitionDirectives(node)
		}
		for _, node := range doc.Extensions {
			b.processDefinitionDirectives(node)
		}
	}

	if len(b.violations) > 0 {
		return ValidationError(b.violations)
	}

	return nil
}

func (b *builder) processMemberDirectives(node *language.Definition) {
	def := b.Definitions[node.Name]
	switch node.Kind {
	case language.Object:
		b.processObjectFieldDirectives(def.Object, node)
	case language.Interface:
		b.processInterfaceFieldDirectives(def.Interface, node)
	case language.Enum:
		b.processEnumValueDirectives(def.Enum, node)
	case language.InputObject:
		b.processInputValueDirectives(def.Input, node)
	}
}

func (b *builder) processDefinitionDirectives(node *language.Definition) {
	def := b.Definitions[node.Name]
	switch node.Kind {
	case language.Scalar:
		b.processScalarTypeDirectives(def.Scalar, node)
	case language.InputObject:
		b.processInputTypeDirectives(def.Input, node)
	default:
		b.checkNoDefinitionDirectiveUses(node)
	}
}

func (b *builder) processObjectFieldDirectives(obj *ObjectDefinition, node *language.Definition) {
	for _, fieldNode := range node.Fields {
		for _, dir := range fieldNode.Directives {
			switch dir.Name {
			case "deprecated":
				obj.Fields[fieldNode.Name].Deprecation = b.projectDeprecation(dir)
			default:
				b.addViolation(violationUnknownDirectiveOnField(dir.Name, fieldNode.Name, node.Name, dir.Position))
			}
		}
	}
}

func (b *builder) processInterfaceFieldDirectives(iface *InterfaceDefinition, node *language.Definition) {
	for _, fieldNode := range node.Fields {
		for _, dir := range fieldNode.Directives {
			switch dir.Name {
			case "deprecated":
				iface.Fields[fieldNode.Name].Deprecation = b.projectDeprecation(dir)
			default:
				b.addViolation(violationInterfaceDirectiveNotAllowed(dir.Name, fieldNode.Name, fieldNode.Position))
			}
		}
	}
}

func (b *builder) processEnumValueDirectives(def *EnumDefinition, node *language.Definition) {
	for _, valueNode := range node.EnumValues {
		for _, dir := range valueNode.Directives {
			switch dir.Name {
			case "deprecated":
				def.Values[valueNode.Name].Deprecation = b.projectDeprecation(dir)
			default:
				b.addViolation(violationUnknownDirectiveOnField(dir.Name, valueNode.Name, node.Name, dir.Position))
			}
		}
	}
}

func (b *builder) processInputValueDirectives(def *InputDefinition, node *language.Definition) {
	for _, fieldNode := range node.Fields {
		for _, dir := range fieldNode.Directives {
			switch dir.Name {
			case "deprecated":
				def.InputValues[fieldNode.Name].Deprecation = b.projectDeprecation(dir)
			default:
				b.addViolation(violationUnknownDirectiveOnField(dir.Name, fieldNode.Name, node.Name, dir.Position))
			}
		}
	}
}

func (b *builder) processScalarTypeDirectives(def *ScalarDefinition, node *language.Definition) {
	for _, dir := range node.Directives {
		switch dir.Name {
		case "specifiedBy":
			def.SpecifiedByURL = b.projectSpecifiedBy(dir)
		default:
			b.addViolation(violationUnknownDirectiveOnType(dir.Name, node.Kind, node.Name, dir.Position))
		}
	}
}

func (b *builder) processInputTypeDirectives(def *InputDefinition, node *language.Definition) {
	for _, dir := range node.Directives {
		switch dir.Name {
		case "oneOf":
			b.checkNoDirectiveArguments(dir)
			def.OneOf = true
		default:
			b.addViolation(violationUnknownDirectiveOnType(dir.Name, node.Kind, node.Name, dir.Position))
		}
	}
}

func (b *builder) projectSpecifiedBy(dir *language.Directive) string {
	var url string

	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "url":
			url = b.getStringValue(arg.Value)
		default:
			b.addViolation(violationUnknownDirectiveArgument("specifiedBy", arg.Name, arg.Position))
		}
	}

	return url
}

func (b *builder) projectDeprecation(dir *language.Directive) *Deprecation {
	reason := "No longer supported"

	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "reason":
			reason = b.getStringValue(arg.Value)
		default:
			b.addViolation(violationUnknownDirectiveArgument("deprecated", arg.Name, arg.Position))
		}
	}

	return &Deprecation{
		Reason: reason,
	}
}

func (b *builder) checkNoDefinitionDirectiveUses(node *language.Definition) {
	for _, dir := range node.Directives {
		b.addViolation(violationUnknownDirectiveOnType(dir.Name, node.Kind, node.Name, dir.Position))
	}
}

func (b *builder) checkNoDirectiveArguments(node *language.Directive) {
	for _, arg := range node.Arguments {
		b.addViolation(violationDirectiveNoArguments(node.Name, arg.Position))
	}
}

func (b *builder) getStringValue(node *language.Value) string {
	if node.Kind != language.StringValue {
		b.addViolation(violationExpectedString(node.Position))
		return ""
	}
	return node.Raw
}
