package model

// 支持的学科
const (
	SubjectTrigonometry = "trigonometry"
	SubjectAlgebra      = "algebra"
	SubjectVolume       = "volume"
	SubjectProbability  = "probability"
	SubjectFractions    = "fractions"
)

var Subjects = []string{
	SubjectTrigonometry,
	SubjectAlgebra,
	SubjectVolume,
	SubjectProbability,
	SubjectFractions,
}

func IsValidSubject(s string) bool {
	for _, v := range Subjects {
		if v == s {
			return true
		}
	}
	return false
}
