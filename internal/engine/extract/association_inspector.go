package extract

import (
	"constref/internal/core/errors"
	"constref/internal/engine/ast"
	"constref/internal/shared/util"
)

// DefaultAssociations are the Active Record macros that name a model by
// convention.
var DefaultAssociations = []string{"belongs_to", "has_many", "has_one", "has_and_belongs_to_many"}

// DefaultAssociationExcludes skips factory definitions, whose association
// calls name factories rather than models.
var DefaultAssociationExcludes = []string{"spec/factories/**", "test/factories/**"}

// Classifier turns an association name into a class name, e.g. line_items
// into LineItem.
type Classifier interface {
	Classify(name string) string
}

// AssociationInspector reports the model implied by `belongs_to :item` and
// similar macros. An explicit `class_name: "..."` string wins over the
// classified association name.
type AssociationInspector struct {
	associations map[string]bool
	excluded     util.PatternSet
	classifier   Classifier
}

// NewAssociationInspector recognizes DefaultAssociations plus custom macros.
// A nil excluded list means DefaultAssociationExcludes.
func NewAssociationInspector(classifier Classifier, custom, excluded []string) (*AssociationInspector, error) {
	if excluded == nil {
		excluded = DefaultAssociationExcludes
	}
	patterns, err := util.CompilePatterns(excluded)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid association exclude pattern")
	}
	associations := make(map[string]bool, len(DefaultAssociations)+len(custom))
	for _, name := range DefaultAssociations {
		associations[name] = true
	}
	for _, name := range custom {
		associations[name] = true
	}
	return &AssociationInspector{associations: associations, excluded: patterns, classifier: classifier}, nil
}

func (i *AssociationInspector) ConstantName(node ast.Node, _ ast.Ancestors, relativePath string) (string, bool) {
	name, err := ast.MethodName(node)
	if err != nil || !i.associations[name] {
		return "", false
	}
	if i.excluded.Match(relativePath) {
		return "", false
	}
	args, err := ast.MethodArguments(node)
	if err != nil || len(args) == 0 || !ast.IsSymbol(args[0]) {
		return "", false
	}
	association, err := ast.LiteralValue(args[0])
	if err != nil {
		return "", false
	}

	if override := classNameOption(args); override != nil {
		if !ast.IsString(override) {
			return "", false
		}
		value, err := ast.LiteralValue(override)
		return value, err == nil && value != ""
	}
	return i.classifier.Classify(association), true
}

func classNameOption(args []ast.Node) ast.Node {
	for _, arg := range args {
		if !ast.IsHash(arg) {
			continue
		}
		value, err := ast.ValueFromHash(arg, "class_name")
		if err == nil {
			return value
		}
		return nil
	}
	return nil
}
