package config

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/juju/schema"
)

// Kind is the semantic type of an option.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindBool
	KindInt
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindList:
		return "list"
	default:
		return "any"
	}
}

// Option describes one cascaded setting.
type Option struct {
	Name    string
	Kind    Kind
	Default func() interface{}
}

func fixed(v interface{}) func() interface{} { return func() interface{} { return v } }

func emptyList() interface{} { return []interface{}{} }

var options = []Option{
	{"nets", KindList, func() interface{} { return []interface{}{"default"} }},
	{"pool", KindString, fixed("default")},
	{"image", KindString, fixed(nil)},
	{"cpumodel", KindString, fixed("host-model")},
	{"numcpus", KindInt, fixed(2)},
	{"memory", KindInt, fixed(512)},
	{"disks", KindList, func() interface{} {
		return []interface{}{map[string]interface{}{"size": 10}}
	}},
	{"disksize", KindInt, fixed(10)},
	{"diskinterface", KindString, fixed("virtio")},
	{"diskthin", KindBool, fixed(true)},
	{"guestid", KindString, fixed("guestrhel764")},
	{"vnc", KindBool, fixed(false)},
	{"cloudinit", KindBool, fixed(true)},
	{"reserveip", KindBool, fixed(false)},
	{"reservedns", KindBool, fixed(false)},
	{"reservehost", KindBool, fixed(false)},
	{"nested", KindBool, fixed(true)},
	{"start", KindBool, fixed(true)},
	{"autostart", KindBool, fixed(false)},
	{"tunnel", KindBool, fixed(false)},
	{"insecure", KindBool, fixed(false)},
	{"reporturl", KindString, fixed(nil)},
	{"reportdir", KindString, fixed("/var/www/html")},
	{"report", KindBool, fixed(false)},
	{"reportall", KindBool, fixed(false)},
	{"keys", KindList, emptyList},
	{"cmds", KindList, emptyList},
	{"dns", KindString, fixed(nil)},
	{"domain", KindString, fixed(nil)},
	{"scripts", KindList, emptyList},
	{"files", KindList, emptyList},
	{"iso", KindString, fixed(nil)},
	{"netmasks", KindList, emptyList},
	{"gateway", KindString, fixed(nil)},
	{"sharedkey", KindBool, fixed(false)},
	{"enableroot", KindBool, fixed(true)},
	{"planview", KindBool, fixed(false)},
	{"privatekey", KindBool, fixed(false)},
	{"rhnregister", KindBool, fixed(false)},
	{"rhnuser", KindString, fixed(nil)},
	{"rhnpassword", KindString, fixed(nil)},
	{"rhnactivationkey", KindString, fixed(nil)},
	{"rhnorg", KindString, fixed(nil)},
	{"rhnpool", KindString, fixed(nil)},
	{"tags", KindList, emptyList},
	{"flavor", KindString, fixed(nil)},
	{"keep_networks", KindBool, fixed(false)},
	{"dnsclient", KindString, fixed(nil)},
	{"storemetadata", KindBool, fixed(false)},
	{"notify", KindBool, fixed(false)},
	{"notifytoken", KindString, fixed(nil)},
	{"notifycmd", KindString, fixed(nil)},
	{"sharedfolders", KindList, emptyList},
	{"kernel", KindString, fixed(nil)},
	{"initrd", KindString, fixed(nil)},
	{"cmdline", KindString, fixed(nil)},
	{"placement", KindList, emptyList},
	{"yamlinventory", KindBool, fixed(false)},
	{"cpuhotplug", KindBool, fixed(false)},
	{"memoryhotplug", KindBool, fixed(false)},
}

var optionIndex = func() map[string]int {
	idx := make(map[string]int, len(options))
	for i, o := range options {
		idx[o.Name] = i
	}
	return idx
}()

// Options returns the option table in declaration order.
func Options() []Option {
	out := make([]Option, len(options))
	copy(out, options)
	return out
}

// OptionNames returns the option names sorted alphabetically.
func OptionNames() []string {
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.Name
	}
	sort.Strings(names)
	return names
}

// LookupOption returns the option named name.
func LookupOption(name string) (Option, bool) {
	i, ok := optionIndex[name]
	if !ok {
		return Option{}, false
	}
	return options[i], true
}

// Builtins returns a fresh copy of the builtin defaults.
func Builtins() map[string]interface{} {
	out := make(map[string]interface{}, len(options))
	for _, o := range options {
		out[o.Name] = o.Default()
	}
	return out
}

// Coerce converts value to the kind of the named option. Unknown options
// and nil values are returned unchanged.
func Coerce(name string, value interface{}) (interface{}, error) {
	o, ok := LookupOption(name)
	if !ok || value == nil {
		return value, nil
	}
	return checkerFor(o.Kind).Coerce(value, []string{name})
}

func checkerFor(kind Kind) schema.Checker {
	switch kind {
	case KindString:
		return forceStringC{}
	case KindBool:
		return schema.Bool()
	case KindInt:
		return schema.ForceInt()
	case KindList:
		return schema.List(schema.Any())
	default:
		return schema.Any()
	}
}

// forceStringC accepts strings and formats numbers and bools as strings,
// so that an unquoted value such as `image: 8` still reads as "8".
type forceStringC struct{}

func (forceStringC) Coerce(v interface{}, path []string) (interface{}, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	}
	return nil, fmt.Errorf("%s: expected string, got %T(%#v)", pathString(path), v, v)
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "value"
	}
	return path[len(path)-1]
}
