package knowledge

import (
	"encoding/csv"
	"errors"
	"os"
	"strings"
)

// Record 知识库条目：一问一答，以加载顺序的下标作为稳定标识
type Record struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LoadRecords 从CSV加载知识库（要求question、answer两列，列顺序不限）。
// 读取或解析失败时返回空切片和错误，由调用方记录警告后继续运行——
// 知识库缺失不阻止服务启动，只是全程走无上下文模式。
func LoadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("knowledge base file is empty")
	}

	// 首行为表头，定位question/answer列
	questionCol, answerCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question":
			questionCol = i
		case "answer":
			answerCol = i
		}
	}
	if questionCol < 0 || answerCol < 0 {
		return nil, errors.New("knowledge base is missing question/answer columns")
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if questionCol >= len(row) || answerCol >= len(row) {
			continue
		}
		question := strings.TrimSpace(row[questionCol])
		answer := strings.TrimSpace(row[answerCol])
		if question == "" && answer == "" {
			// 跳过空行
			continue
		}
		records = append(records, Record{Question: question, Answer: answer})
	}

	return records, nil
}
