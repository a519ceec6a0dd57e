package par2

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var recoveryFilePattern = regexp.MustCompile(`(?i)^(.+?)(?:\.vol(\d+)\+(\d+))?\.par2$`)

// ExponentRange is an inclusive range of exponents.
type ExponentRange struct {
	First uint32
	Last  uint32
}

func (r ExponentRange) Count() int {
	return int(r.Last-r.First) + 1
}

func (r ExponentRange) Contains(e uint32) bool {
	return e >= r.First && e <= r.Last
}

// RecoveryFile is what a recovery file's name says about it.
type RecoveryFile struct {
	Locator string
	Name    string

	// Exponents is nil for files without a .volSTART+COUNT suffix.
	Exponents *ExponentRange
}

// ParseRecoveryFile reads the set name and exponent range from the final path
// element of locator.
func ParseRecoveryFile(locator string) (RecoveryFile, error) {
	base := path.Base(strings.ReplaceAll(locator, "\\", "/"))

	m := recoveryFilePattern.FindStringSubmatch(base)
	if m == nil {
		return RecoveryFile{}, fmt.Errorf("%w: %s", ErrNotRecoveryFile, base)
	}

	rf := RecoveryFile{Locator: locator, Name: m[1]}
	if m[2] == "" {
		return rf, nil
	}

	start, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil {
		return RecoveryFile{}, fmt.Errorf("%w: volume start %q", ErrTooLargeNumber, m[2])
	}
	count, err := strconv.ParseUint(m[3], 10, 32)
	if err != nil {
		return RecoveryFile{}, fmt.Errorf("%w: volume count %q", ErrTooLargeNumber, m[3])
	}

	if count > 0 {
		rf.Exponents = &ExponentRange{First: uint32(start), Last: uint32(start + count - 1)}
	}

	return rf, nil
}

// IndexFileName is the name of the file holding only the critical packets.
func IndexFileName(name string) string {
	return name + ".par2"
}

// VolumeFileName is the name of a volume holding count slices starting at exponent start.
func VolumeFileName(name string, start, count uint32) string {
	return fmt.Sprintf("%s.vol%03d+%02d.par2", name, start, count)
}
