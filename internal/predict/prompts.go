package predict

import (
	"fmt"
	"strings"
	"time"

	"senkyo/internal/refdata"
)

// Prompt size limits. News text is truncated to keep prompts inside the
// model's context budget; the tighter limits apply to the retry and batch
// prompts, which also carry the roster.
const (
	newsBudgetMain  = 6000
	newsBudgetRetry = 800
	newsBudgetBatch = 1000
)

// majorPrefectureIDs are the prefectures whose rosters are embedded in the
// national prompt. Including all 47 would blow the context budget.
var majorPrefectureIDs = []int{1, 4, 11, 12, 13, 14, 23, 27, 28, 40}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// formatDistrictRoster renders the candidates of selected districts as
// prompt text. districtNumbers nil means every district in the roster.
func formatDistrictRoster(roster *refdata.Roster, pref *refdata.Prefecture, districtNumbers []int) string {
	prefData := roster.Prefecture(pref.ID)
	if prefData == nil {
		return ""
	}

	wanted := func(int) bool { return true }
	if districtNumbers != nil {
		set := make(map[int]struct{}, len(districtNumbers))
		for _, n := range districtNumbers {
			set[n] = struct{}{}
		}
		wanted = func(n int) bool { _, ok := set[n]; return ok }
	}

	var b strings.Builder
	for _, d := range prefData.Districts {
		if !wanted(d.Number) {
			continue
		}
		fmt.Fprintf(&b, "### %s%d区\n", pref.Name, d.Number)
		for _, c := range d.Candidates {
			fmt.Fprintf(&b, "- %s（%s、%s）\n", c.Name, c.Party, c.Status)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatRoster renders the candidate roster as prompt text. For a named
// prefecture every filed district is included; for the national scope only
// the major prefectures are, to respect token limits.
func FormatRoster(roster *refdata.Roster, pref *refdata.Prefecture) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## 候補者データ（%s）\n投票日: %s\n\n", roster.Election.Name, roster.Election.Date)

	if pref != nil {
		fmt.Fprintf(&b, "### %s\n", pref.Name)
		b.WriteString(formatDistrictRoster(roster, pref, nil))
		return b.String()
	}

	for _, id := range majorPrefectureIDs {
		p := refdata.PrefectureByID(id)
		if p == nil || roster.Prefecture(id) == nil {
			continue
		}
		fmt.Fprintf(&b, "### %s\n", p.Name)
		b.WriteString(formatDistrictRoster(roster, p, nil))
	}
	return b.String()
}

// baselineForecastsJSON is the national baseline embedded in prompts as the
// required output shape.
const baselineForecastsJSON = `[{"party":"自民党","seatRange":[170,200],"change":-15},{"party":"中道改革連合","seatRange":[85,105],"change":12},{"party":"日本維新の会","seatRange":[50,65],"change":8},{"party":"公明党","seatRange":[25,32],"change":-2},{"party":"国民民主党","seatRange":[15,22],"change":4},{"party":"共産党","seatRange":[8,12],"change":-1},{"party":"れいわ新選組","seatRange":[5,10],"change":3},{"party":"その他","seatRange":[8,15],"change":0}]`

// buildMainPrompt builds the full analysis prompt for the national scope
// or one prefecture.
func buildMainPrompt(newsText, rosterText string, pref *refdata.Prefecture, now time.Time) string {
	targetScope := "全国の"
	if pref != nil {
		targetScope = fmt.Sprintf("%sを中心に", pref.Name)
	}

	return fmt.Sprintf(`あなたは日本の選挙分析の専門家です。2026年2月8日投票の第51回衆議院選挙について、以下の候補者データとニュースデータを分析し、%s予測を作成してください。

%s
## 収集されたニュース・世論調査データ:
%s

## 分析タスク:
1. 各政党の支持率トレンドを分析
2. 選挙区ごとの情勢と主要候補者を特定
3. 接戦区を特定
4. 最終的な議席予測を作成

## 出力形式（必ずこのJSON形式で出力）:
{
  "timestamp": "%s",
  "nationalSummary": {
    "totalSeats": 465,
    "predictions": %s
  },
  "prefecturePredictions": [
    {
      "prefectureId": 13,
      "prefectureName": "東京都",
      "leadingParty": "優勢な政党",
      "confidence": "high/medium/low",
      "seatPrediction": [{"party": "政党名", "seats": 数}],
      "districts": [
        {
          "districtNumber": 1,
          "districtName": "東京1区",
          "candidates": [
            {"name": "山田太郎", "party": "自民党", "isIncumbent": true, "predictedVoteShare": 35},
            {"name": "鈴木花子", "party": "中道改革連合", "isIncumbent": false, "predictedVoteShare": 32}
          ],
          "leadingCandidate": "山田太郎",
          "confidence": "low"
        }
      ]
    }
  ],
  "keyBattlegrounds": ["注目選挙区1", "注目選挙区2", "注目選挙区3"]
}

重要:
- 候補者データに記載されている実際の候補者名・政党名を必ず使用してください
- isIncumbent: 候補者データのstatusが「前職」ならtrue、「新人」「元職」ならfalse
- predictedVoteShare: 予測得票率（%%）、候補者全員の合計が100%%になるように
- 確信度: high=優勢明確, medium=接戦, low=予測困難
- 政党名は候補者データの表記に合わせてください
- JSONのみを出力してください。説明文は不要です。`,
		targetScope, rosterText, truncateRunes(newsText, newsBudgetMain),
		now.UTC().Format(time.RFC3339), baselineForecastsJSON)
}

// buildFastPrompt builds the cheap prompt variant. A prefecture still gets
// one real call but no per-district output; the national fast path asks
// the model to echo the baseline.
func buildFastPrompt(newsText, rosterText string, pref *refdata.Prefecture, now time.Time) string {
	ts := now.UTC().Format(time.RFC3339)
	if pref == nil {
		return fmt.Sprintf(`以下のJSONをそのまま出力してください。
{"timestamp":"%s","nationalSummary":{"totalSeats":465,"predictions":%s},"prefecturePredictions":[],"keyBattlegrounds":["東京1区","大阪5区","愛知1区","神奈川18区","福岡2区"]}`,
			ts, baselineForecastsJSON)
	}

	return fmt.Sprintf(`## タスク
%sの衆議院選挙（2026年2月8日）の予測を作成してください。
選挙区数: %d区

## 収集されたニュース・調査データ
%s

## 候補者データ
%s

## 出力形式
以下のJSON形式で出力。seatPredictionの合計は必ず%dになるよう調整。
leadingParty: ニュースデータから判断した優勢政党
confidence: high（優勢明確）/ medium（接戦）/ low（予測困難）

{"timestamp":"%s","nationalSummary":{"totalSeats":465,"predictions":%s},"prefecturePredictions":[{"prefectureId":%d,"prefectureName":"%s","leadingParty":"[ニュースから判断]","confidence":"[high/medium/low]","seatPrediction":[{"party":"政党名","seats":数値}]}],"keyBattlegrounds":["%sの注目区"]}

JSONのみ出力。説明不要。`,
		pref.Name, pref.Districts, truncateRunes(newsText, newsBudgetMain), rosterText,
		pref.Districts, ts, baselineForecastsJSON, pref.ID, pref.Name, pref.Name)
}

// buildDistrictPrompt builds the prompt for regenerating every district of
// a prefecture when the first pass produced flat vote shares.
func buildDistrictPrompt(newsText, rosterText string, pref *refdata.Prefecture) string {
	return fmt.Sprintf(`## タスク
%sの2026年衆議院選挙の候補者別得票率を予測してください。
選挙区数: %d区

## 重要な指示
- 各候補者の得票率(predictedVoteShare)は、現職・知名度・政党支持率などを考慮して現実的に予測
- 全候補者で100%%になるように配分
- 接戦区は差を小さく、優勢な候補がいる場合は差を大きく
- **得票率を候補者ごとに変えること（全員同じ数値は不可）**

## 候補者データ
%s

## 参考: 最新ニュース
%s

## 出力形式
以下のJSON配列を正確に出力。候補者名は上記データから正確に使用すること。
[
  {
    "districtNumber": 1,
    "districtName": "%s1区",
    "candidates": [
      {"name": "候補者名", "party": "政党名", "isIncumbent": true, "predictedVoteShare": 38},
      {"name": "候補者名", "party": "政党名", "isIncumbent": false, "predictedVoteShare": 35}
    ],
    "leadingCandidate": "1位候補者名",
    "confidence": "medium"
  }
]
%d区まで全て出力すること。

JSONのみ出力。説明不要。`,
		pref.Name, pref.Districts, rosterText,
		truncateRunes(newsText, newsBudgetRetry), pref.Name, pref.Districts)
}

// buildBatchPrompt builds the prompt for one batch of districts of a large
// prefecture.
func buildBatchPrompt(newsText, rosterText string, pref *refdata.Prefecture, districtNumbers []int) string {
	nums := make([]string, len(districtNumbers))
	for i, n := range districtNumbers {
		nums[i] = fmt.Sprintf("%d", n)
	}
	numList := strings.Join(nums, ", ")
	first := districtNumbers[0]

	return fmt.Sprintf(`## タスク
%sの衆議院選挙（2026年2月8日）の予測を作成してください。
対象選挙区: %s区のみ

## 候補者データ（必ずこの候補者名を使用）
%s

## ニュースデータ
%s

## 出力形式
以下のJSON配列形式で出力。必ず%d区分（%s区）を出力すること。
候補者名は上記の候補者データから正確に引用すること。
[
  {"districtNumber": %d, "districtName": "%s%d区", "candidates": [{"name": "上記データの候補者名", "party": "政党名", "isIncumbent": true, "predictedVoteShare": 数値}], "leadingCandidate": "1位候補者名", "confidence": "medium"}
]

JSONのみ出力。説明不要。`,
		pref.Name, numList, rosterText, truncateRunes(newsText, newsBudgetBatch),
		len(districtNumbers), numList, first, pref.Name, first)
}

// buildCommentaryPrompt builds the prompt for the free-text situation
// analysis of one prefecture.
func buildCommentaryPrompt(newsText, districtSummary string, pref *refdata.Prefecture) string {
	return fmt.Sprintf(`## タスク
%sの2026年衆議院選挙の情勢を100文字程度で簡潔に分析してください。

## 選挙区別の優勢状況
%s

## 参考ニュース
%s

## 出力形式
- 100文字程度の日本語コメント
- 主要な対決構図、注目ポイントを含める
- 具体的な候補者名を1-2名挙げる
- JSONや説明文は不要、コメントのみ出力`,
		pref.Name, districtSummary, truncateRunes(newsText, 500))
}
