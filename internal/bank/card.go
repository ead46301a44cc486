package bank

// Card 為插入機台的實體卡片。
// 機台驗證 PIN 時比對的是卡片所綁定帳戶的密碼，PIN 欄位僅代表卡面資料。
type Card struct {
	Number string `json:"number"`
	PIN    string `json:"-"`
	Holder string `json:"holder"`
}
