package refdata

// Prefecture is a top-level administrative subdivision with a fixed number
// of single-member districts. The district count is authoritative reference
// data and is never inferred from model output.
type Prefecture struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Districts int    `json:"districts"`
}

// Prefectures lists all 47 prefectures in ID order.
var Prefectures = []Prefecture{
	{ID: 1, Name: "北海道", Districts: 12},
	{ID: 2, Name: "青森県", Districts: 3},
	{ID: 3, Name: "岩手県", Districts: 3},
	{ID: 4, Name: "宮城県", Districts: 5},
	{ID: 5, Name: "秋田県", Districts: 3},
	{ID: 6, Name: "山形県", Districts: 3},
	{ID: 7, Name: "福島県", Districts: 5},
	{ID: 8, Name: "茨城県", Districts: 7},
	{ID: 9, Name: "栃木県", Districts: 5},
	{ID: 10, Name: "群馬県", Districts: 5},
	{ID: 11, Name: "埼玉県", Districts: 15},
	{ID: 12, Name: "千葉県", Districts: 13},
	{ID: 13, Name: "東京都", Districts: 30},
	{ID: 14, Name: "神奈川県", Districts: 20},
	{ID: 15, Name: "新潟県", Districts: 6},
	{ID: 16, Name: "富山県", Districts: 3},
	{ID: 17, Name: "石川県", Districts: 3},
	{ID: 18, Name: "福井県", Districts: 2},
	{ID: 19, Name: "山梨県", Districts: 2},
	{ID: 20, Name: "長野県", Districts: 5},
	{ID: 21, Name: "岐阜県", Districts: 5},
	{ID: 22, Name: "静岡県", Districts: 8},
	{ID: 23, Name: "愛知県", Districts: 15},
	{ID: 24, Name: "三重県", Districts: 5},
	{ID: 25, Name: "滋賀県", Districts: 4},
	{ID: 26, Name: "京都府", Districts: 6},
	{ID: 27, Name: "大阪府", Districts: 19},
	{ID: 28, Name: "兵庫県", Districts: 12},
	{ID: 29, Name: "奈良県", Districts: 3},
	{ID: 30, Name: "和歌山県", Districts: 3},
	{ID: 31, Name: "鳥取県", Districts: 2},
	{ID: 32, Name: "島根県", Districts: 2},
	{ID: 33, Name: "岡山県", Districts: 5},
	{ID: 34, Name: "広島県", Districts: 7},
	{ID: 35, Name: "山口県", Districts: 4},
	{ID: 36, Name: "徳島県", Districts: 2},
	{ID: 37, Name: "香川県", Districts: 3},
	{ID: 38, Name: "愛媛県", Districts: 4},
	{ID: 39, Name: "高知県", Districts: 2},
	{ID: 40, Name: "福岡県", Districts: 11},
	{ID: 41, Name: "佐賀県", Districts: 2},
	{ID: 42, Name: "長崎県", Districts: 4},
	{ID: 43, Name: "熊本県", Districts: 5},
	{ID: 44, Name: "大分県", Districts: 3},
	{ID: 45, Name: "宮崎県", Districts: 3},
	{ID: 46, Name: "鹿児島県", Districts: 5},
	{ID: 47, Name: "沖縄県", Districts: 4},
}

// PrefectureByID returns the prefecture with the given ID, or nil if the ID
// is out of range.
func PrefectureByID(id int) *Prefecture {
	for i := range Prefectures {
		if Prefectures[i].ID == id {
			return &Prefectures[i]
		}
	}
	return nil
}
