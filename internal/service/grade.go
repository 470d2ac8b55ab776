package service

type Grade string

const (
	GradeExcellent Grade = "excellent"
	GradeGood      Grade = "good"
	GradeFair      Grade = "fair"
	GradePoor      Grade = "poor"
)

// Percentage считает долю правильных ответов в процентах
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(score) / float64(total)
}

func GradeFor(percentage float64) Grade {
	switch {
	case percentage >= 90:
		return GradeExcellent
	case percentage >= 70:
		return GradeGood
	case percentage >= 50:
		return GradeFair
	default:
		return GradePoor
	}
}
