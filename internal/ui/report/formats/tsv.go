package formats

import (
	"fmt"
	"strings"

	"constref/internal/engine/architecture"
	"constref/internal/engine/resolver"
)

// GenerateTSV writes one row per reference.
func GenerateTSV(refs []resolver.Reference) string {
	var buf strings.Builder

	buf.WriteString("File\tLine\tColumn\tConstant\tLocation\n")
	for _, ref := range refs {
		buf.WriteString(fmt.Sprintf("%s\t%d\t%d\t%s\t%s\n",
			ref.RelativePath,
			ref.SourceLocation.Line,
			ref.SourceLocation.Column,
			ref.Constant.Name,
			ref.Constant.Location,
		))
	}
	return buf.String()
}

func GenerateViolationsTSV(rows []architecture.Violation) string {
	var buf strings.Builder

	buf.WriteString("Type\tRule\tFromLayer\tToLayer\tFile\tLine\tColumn\tConstant\tTarget\n")
	for _, row := range rows {
		buf.WriteString(fmt.Sprintf("architecture_violation\t%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			row.Rule,
			row.FromLayer,
			row.ToLayer,
			row.File,
			row.Location.Line,
			row.Location.Column,
			row.Constant,
			row.Target,
		))
	}
	return buf.String()
}
