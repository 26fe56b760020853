package refresh

import "boss-spawn-board/internal/models"

// DefaultReports is shown when neither the cache nor the feed can supply data.
func DefaultReports() []models.MonsterReport {
	return []models.MonsterReport{
		{
			ReporterUserID: "1881316780629635074",
			ReporterName:   "XDGGDD",
			Date:           "2025-02-21",
			StartHour:      15,
			StartMinute:    29,
			EndHour:        16,
			EndMinute:      44,
			MonsterID:      49,
			RegionID:       0,
			LocationName:   "10号道路",
			Move1ID:        405,
			Move2ID:        390,
			Move3ID:        18,
			Move4ID:        355,
			AlphaTimeID:    2,
			Summary:        "[09:29~~10:44][头目:摩鲁蛾][梦特:奇迹皮肤]虫鸣, 毒菱, 吹飞, 羽栖[10号道路][报点人:XDGGDD]",
			AvatarImageURL: "https://cdn.api.pokemmo.com.cn/static/dress/2/2/0/2174/0/1443/0/0/1312d7/0/1317d7/1326d0/2241.png",
		},
		{
			ID:             "1892725672005677057",
			ReporterUserID: "1881316780629635074",
			ReporterName:   "XDGGDD",
			Date:           "2025-02-21",
			StartHour:      4,
			StartMinute:    47,
			EndHour:        6,
			EndMinute:      2,
			MonsterID:      264,
			RegionID:       1,
			LocationName:   "102号道路",
			Move1ID:        34,
			Move2ID:        402,
			Move3ID:        421,
			Move4ID:        187,
			AlphaTimeID:    1,
			Summary:        "[04:47~~06:02][头目:直冲熊][梦特:飞毛腿]泰山压顶, 种子炸弹, 暗影爪, 腹鼓[102号道路][报点人:XDGGDD]",
			AvatarImageURL: "https://cdn.api.pokemmo.com.cn/static/dress/2/2/0/2174/0/1443/0/0/1312d7/0/1317d7/1326d0/2241.png",
		},
	}
}
