package upstream

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Fallback generates canned train-ticket answers locally when no AI
// provider is configured, chunked with a small delay so the client sees the
// same streaming behavior as the provider path.
type Fallback struct {
	chunkSize int
	delay     time.Duration
}

// NewFallback creates the local fallback replier. chunkSize <= 0 falls back
// to 10 runes per fragment.
func NewFallback(chunkSize int, delay time.Duration) *Fallback {
	if chunkSize <= 0 {
		chunkSize = 10
	}
	return &Fallback{chunkSize: chunkSize, delay: delay}
}

// StreamReply matches the message against known city pairs and streams the
// templated answer.
func (f *Fallback) StreamReply(ctx context.Context, userText, userID string) (Stream, error) {
	return &fallbackStream{
		chunks: splitIntoChunks(generateTrainTicketResponse(userText), f.chunkSize),
		delay:  f.delay,
	}, nil
}

type fallbackStream struct {
	chunks []string
	pos    int
	delay  time.Duration
}

// Next yields the chunks in order with an artificial inter-fragment delay.
func (s *fallbackStream) Next(ctx context.Context) (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *fallbackStream) Close() error {
	s.pos = len(s.chunks)
	return nil
}

// splitIntoChunks splits text into fixed-size rune chunks for streaming.
func splitIntoChunks(text string, size int) []string {
	runes := []rune(text)
	var chunks []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// generateTrainTicketResponse picks a canned answer by keyword matching
// against the user message.
func generateTrainTicketResponse(message string) string {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "北京") && strings.Contains(lower, "上海") {
		return beijingShanghaiResponse
	}
	if strings.Contains(lower, "广州") && strings.Contains(lower, "深圳") {
		return guangzhouShenzhenResponse
	}
	return fmt.Sprintf(defaultResponseTemplate, message)
}

const beijingShanghaiResponse = `# 🚄 北京到上海火车票查询结果

## 高速动车组列车

| 车次 | 出发站 | 到达站 | 发车时间 | 到达时间 | 二等座 | 一等座 | 商务座 |
|------|--------|--------|----------|----------|--------|--------|--------|
| **G1次** | 北京南 | 上海虹桥 | 06:00 | 10:28 | ¥553 | ¥933 | ¥1748 |
| **G3次** | 北京南 | 上海虹桥 | 07:00 | 11:28 | ¥553 | ¥933 | ¥1748 |
| **G5次** | 北京南 | 上海虹桥 | 08:00 | 12:28 | ¥553 | ¥933 | ¥1748 |

## 💡 购票建议

- **提前购票**：建议提前30天购票，票源更充足
- **价格优势**：工作日票价相对较低
- **官方渠道**：可关注 [12306官网](https://www.12306.cn) 获取最新信息

> **温馨提示**：以上信息仅供参考，实际票价和余票情况请以12306官网为准。

---

需要我帮您查询其他日期或车次信息吗？`

const guangzhouShenzhenResponse = `# 🚄 广州到深圳城际列车查询

## 城际高速列车时刻表

| 车次 | 出发站 | 到达站 | 发车时间 | 到达时间 | 运行时长 | 二等座 | 一等座 |
|------|--------|--------|----------|----------|----------|--------|--------|
| **C7001** | 广州南 | 深圳北 | 06:20 | 06:55 | 35分钟 | ¥74.5 | ¥89.5 |
| **C7003** | 广州南 | 深圳北 | 06:40 | 07:15 | 35分钟 | ¥74.5 | ¥89.5 |
| **C7005** | 广州南 | 深圳北 | 07:00 | 07:35 | 35分钟 | ¥74.5 | ¥89.5 |

## ✨ 城际列车特色

- **班次密集**：约15-20分钟一班，无需担心错过
- **快速便捷**：全程仅需35分钟
- **电子票务**：支持刷身份证直接进站

` + "```" + `
💳 购票方式
• 12306官网/APP
• 车站自助售票机
• 人工售票窗口
` + "```" + `

> **小贴士**：广深城际是粤港澳大湾区的重要交通纽带，连接广州和深圳两大核心城市。

还需要查询其他时间段的班次吗？`

const defaultResponseTemplate = `# 🤖 火车票智能助手

您好！我已收到您的查询请求：

> "%s"

## 🔍 正在智能解析...

我正在努力识别您的出行需求，包括：

- **出发地和目的地** 🚩
- **出行日期** 📅
- **座位偏好** 🎫

## 💡 查询建议

为了更好地为您服务，请提供更详细的信息：

### 推荐格式

` + "```" + `
北京到上海，明天上午出发
广州南到深圳北，1月15日
杭州东到南京南，下周五下午
` + "```" + `

### 车次类型

- **高铁** (G字头) - 速度最快，价格较高
- **动车** (D字头) - 速度较快，价格适中
- **城际** (C字头) - 短途首选，班次密集
- **普通列车** (K/T字头) - 价格实惠，时间较长

---

**需要我帮您重新查询吗？** 😊`
