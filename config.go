package nanolisp

import "fmt"

// CompilerConfig is a path-keyed configuration map, grounded on the
// teacher's config.go Config type: a flat map from dotted path to a
// typed value, rather than a fixed struct, so new knobs can be added
// without breaking callers who only read the ones they know about.
type CompilerConfig map[string]*cfgVal

// NewCompilerConfig returns a config primed with this package's
// defaults. The compiler reads only compiler.max_recursion_depth and
// compiler.max_macro_expansions; the other keys are stored but not
// consulted (the constant pool cap is fixed at 65535 in scope.go, and
// the reader always validates UTF-8 and takes no config).
func NewCompilerConfig() *CompilerConfig {
	m := make(CompilerConfig)
	m.SetInt("compiler.max_recursion_depth", 512)
	m.SetInt("compiler.max_macro_expansions", 256)
	m.SetInt("compiler.max_constants", 65535)
	m.SetInt("compiler.optimize", 0)
	m.SetBool("compiler.source_map", true)
	m.SetBool("reader.strict_utf8", true)
	return &m
}

type cfgValType int

const (
	cfgValType_Undefined cfgValType = iota
	cfgValType_Bool
	cfgValType_Int
	cfgValType_String
)

func (vt cfgValType) String() string {
	return map[cfgValType]string{
		cfgValType_Undefined: "undefined",
		cfgValType_Bool:      "bool",
		cfgValType_Int:       "int",
		cfgValType_String:    "string",
	}[vt]
}

type cfgVal struct {
	typ      cfgValType
	asBool   bool
	asInt    int
	asString string
}

func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValType_Undefined {
		panic(fmt.Sprintf("can't assign `%s` to type `%s`", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("can't retrieve `%s` from `%s` variable", vt, v.typ))
	}
}

func (c *CompilerConfig) SetBool(path string, v bool) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Bool)
	(*c)[path].asBool = v
}

func (c *CompilerConfig) SetInt(path string, v int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Int)
	(*c)[path].asInt = v
}

func (c *CompilerConfig) SetString(path string, v string) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_String)
	(*c)[path].asString = v
}

func (c *CompilerConfig) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Bool)
		return val.asBool
	}
	return false
}

func (c *CompilerConfig) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Int)
		return val.asInt
	}
	return 0
}

func (c *CompilerConfig) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_String)
		return val.asString
	}
	return ""
}

// MaxRecursionDepth is the bounded-recursion limit spec.md §4.2's
// dispatch algorithm requires on its own compile-recursion counter.
func (c *CompilerConfig) MaxRecursionDepth() int { return c.GetInt("compiler.max_recursion_depth") }

// MaxMacroExpansions bounds the number of macro-expansion rounds a
// single dispatch step may perform before the compiler gives up with
// an ErrRecursionDepth error.
func (c *CompilerConfig) MaxMacroExpansions() int { return c.GetInt("compiler.max_macro_expansions") }
