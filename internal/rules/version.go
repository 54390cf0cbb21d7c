package rules

import (
	"github.com/blang/semver/v4"
)

const (
	// CurrentVersion — версия схемы, которую понимает этот код.
	CurrentVersion = "1.0.0"

	// BreakingVersion — всё, что старше, заменяется дефолтом целиком, без слияния полей.
	BreakingVersion = "1.0.0"
)

var (
	currentSemver  = semver.MustParse(CurrentVersion)
	breakingSemver = semver.MustParse(BreakingVersion)
)

// versionLess сравнивает версии покомпонентно и численно ("1.10.0" новее "1.2.0").
// Пустая или битая версия считается старше любой валидной.
func versionLess(a, b string) bool {
	va, errA := semver.ParseTolerant(a)
	vb, errB := semver.ParseTolerant(b)
	switch {
	case errA != nil && errB != nil:
		return false
	case errA != nil:
		return true
	case errB != nil:
		return false
	}
	return va.LT(vb)
}

// IsOutdated сообщает, нужна ли миграция для сохраненной версии.
func IsOutdated(version string) bool {
	return versionLess(version, currentSemver.String())
}

func isBeforeBreaking(version string) bool {
	return versionLess(version, breakingSemver.String())
}
