package sim

import (
	"fmt"
	"strings"
)

// NameMustBeValid panics if the name does not follow the hierarchical naming
// convention: dot-separated, non-empty elements, each starting with a capital
// letter, with optional square-bracket indices such as "Ctrl.Port[2]".
func NameMustBeValid(name string) {
	for _, elem := range strings.Split(name, ".") {
		if err := checkNameElement(elem); err != nil {
			panic(fmt.Sprintf("name %q is not valid: %v", name, err))
		}
	}
}

func checkNameElement(elem string) error {
	base := elem
	if i := strings.IndexByte(elem, '['); i >= 0 {
		base = elem[:i]
		if err := checkIndices(elem[i:]); err != nil {
			return err
		}
	}

	if base == "" {
		return fmt.Errorf("empty element")
	}

	if strings.ContainsAny(base, "_\"'- ]") {
		return fmt.Errorf("element %q contains an invalid character", base)
	}

	if base[0] < 'A' || base[0] > 'Z' {
		return fmt.Errorf("element %q must start with a capital letter", base)
	}

	return nil
}

func checkIndices(s string) error {
	for s != "" {
		if s[0] != '[' {
			return fmt.Errorf("unexpected %q after index", s)
		}

		end := strings.IndexByte(s, ']')
		if end < 0 {
			return fmt.Errorf("bracket must match")
		}

		digits := s[1:end]
		if digits == "" || strings.Trim(digits, "0123456789") != "" {
			return fmt.Errorf("index %q must be an integer", digits)
		}

		s = s[end+1:]
	}

	return nil
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}
