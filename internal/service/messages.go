package service

import (
	"fmt"
	"time"
)

const (
	msgCorrect   = "✅ Правильно!"
	msgNoSession = "Напиши /quiz щоб розпочати тест."
	msgCanceled  = "🚪 Тест перервано.\nРезультат не збережено."
)

func msgQuizStarted(total int, window time.Duration) string {
	return fmt.Sprintf("🍽 Почнемо тест по меню!\nПитань: %d, на кожне %d сек.", total, int(window.Seconds()))
}

func msgIncorrect(correct string) string {
	return fmt.Sprintf("❌ Неправильно! Правильна відповідь: %s", correct)
}

func msgTimeUp(correct string) string {
	return fmt.Sprintf("⏰ Час вийшов! Правильна відповідь: %s", correct)
}
