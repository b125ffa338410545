package tabular

import (
	"fmt"
	"os"
)

// exampleContents is a trivial five-line table used by the demo command
// and the package's own tests.
const exampleContents = `first_name,second_name,age,height,gender
Fred,Bloggs,59,1.95,male
Peter,Bloggs,15,1.86,male
Ann,Somebody,32,1.76,female
Ada,Lovelace,46,1.67,female
`

// WriteExampleFile writes the fixed example table to path, overwriting
// any existing content.
func WriteExampleFile(path string) error {
	if err := os.WriteFile(path, []byte(exampleContents), 0644); err != nil {
		return fmt.Errorf("write example file: %w", err)
	}
	return nil
}
