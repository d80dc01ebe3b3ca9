package domain

// Scene は脚本から切り出された1シーンを保持します。
// 抽出後は不変であり、元脚本内での出現順（SceneNumber）で識別されます。
type Scene struct {
	SceneNumber  int    `json:"scene_number"`
	SceneHeading string `json:"scene_heading"`
	Location     string `json:"location"`
	TimeOfDay    string `json:"time_of_day"`
	RawText      string `json:"raw_text"`
}

// Scenes は Scene のスライスに対するヘルパーを提供するのだ。
type Scenes []Scene

// Headings は全シーンの見出し行を出現順に返します。
func (ss Scenes) Headings() []string {
	headings := make([]string, 0, len(ss))
	for _, s := range ss {
		headings = append(headings, s.SceneHeading)
	}
	return headings
}
