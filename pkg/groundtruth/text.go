package groundtruth

import (
	"fmt"
	"time"
)

// textValue renders a decoded database value the way it would appear in a
// CSV answer file.
func textValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format("01/02/2006 15:04:05")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
