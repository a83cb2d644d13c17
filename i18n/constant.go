package i18n

const DEFAULT_LANG = "en"

// Generic
const (
	ERROR_GENERIC       = "error.generic"
	ERROR_ACCESS_DENIED = "error.access_denied"
	TEXT_UNKNOWN        = "text.unknown"
	PHOTO_THANKS        = "photo.thanks"
)

// Menus and buttons
const (
	WELCOME                 = "welcome"
	BTN_RANDOM_VIDEO        = "btn.random_video"
	BTN_RANDOM_FILE         = "btn.random_file"
	BTN_UPLOAD_VIDEO        = "btn.upload_video"
	BTN_UPLOAD_FILE         = "btn.upload_file"
	BTN_TRENDING            = "btn.trending"
	BTN_POPULAR             = "btn.popular"
	BTN_CATEGORIES          = "btn.categories"
	BTN_ADMIN               = "btn.admin"
	BTN_BACK                = "btn.back"
	BTN_SHARE               = "btn.share"
	BTN_BROADCAST           = "btn.broadcast"
	BTN_STATS               = "btn.stats"
	BTN_MANAGE_TRENDING     = "btn.manage_trending"
	BTN_MANAGE_FILES        = "btn.manage_files"
	BTN_ADD_MOVIE           = "btn.add_movie"
	BTN_ADD_SERIES          = "btn.add_series"
	BTN_BROADCAST_TEXT      = "btn.broadcast_text"
	BTN_BROADCAST_IMAGE     = "btn.broadcast_image"
	BTN_BROADCAST_VIDEO     = "btn.broadcast_video"
	BTN_BROADCAST_FILE      = "btn.broadcast_file"
	BTN_ADD_TRENDING        = "btn.add_trending"
	BTN_CLEAR_TRENDING      = "btn.clear_trending"
	BTN_ADD_POPULAR         = "btn.add_popular"
	BTN_CLEAR_POPULAR       = "btn.clear_popular"
	BTN_FILE_STATS          = "btn.file_stats"
	BTN_WIZARD_ADD_EPISODE  = "btn.wizard.add_episode"
	BTN_WIZARD_ADD_SEASON   = "btn.wizard.add_season"
	BTN_WIZARD_FINISH       = "btn.wizard.finish"
	ADMIN_PANEL             = "admin.panel"
	ADMIN_MANAGE_TRENDING   = "admin.manage_trending"
	ADMIN_MANAGE_FILES      = "admin.manage_files"
	ADMIN_FILE_STATS        = "admin.file_stats"
	ADMIN_FILE_STATS_LINE   = "admin.file_stats_line"
	ADMIN_FILE_STATS_EMPTY  = "admin.file_stats_empty"
	BROADCAST_MENU          = "broadcast.menu"
	BROADCAST_PROMPT_TEXT   = "broadcast.prompt.text"
	BROADCAST_PROMPT_IMAGE  = "broadcast.prompt.image"
	BROADCAST_PROMPT_VIDEO  = "broadcast.prompt.video"
	BROADCAST_PROMPT_FILE   = "broadcast.prompt.file"
	BROADCAST_PREFIX        = "broadcast.prefix"
	BROADCAST_STARTED       = "broadcast.started"
	BROADCAST_DONE          = "broadcast.done"
	BROADCAST_WRONG_CONTENT = "broadcast.wrong_content"
	BROADCAST_TOO_LONG      = "broadcast.too_long"
)

// Delivery
const (
	QUOTA_EXHAUSTED  = "quota.exhausted"
	QUOTA_REMAINING  = "quota.remaining"
	QUOTA_LAST       = "quota.last"
	KIND_VIDEO       = "kind.video"
	KIND_FILE        = "kind.file"
	CATALOG_EMPTY    = "catalog.empty"
	TRENDING_HEADER  = "trending.header"
	TRENDING_EMPTY   = "trending.empty"
	POPULAR_HEADER   = "popular.header"
	POPULAR_EMPTY    = "popular.empty"
	CATEGORIES_TITLE = "categories.title"
	CATEGORIES_EMPTY = "categories.empty"
	CATEGORY_HEADER  = "category.header"
	CATEGORY_EMPTY   = "category.empty"
	FILE_CAPTION     = "file.caption"
	AUTO_DELETE_NOTE = "delivery.auto_delete"
	DELIVERY_FAILED  = "delivery.failed"
)

// Uploads
const (
	UPLOAD_VIDEO_OK  = "upload.video_ok"
	UPLOAD_FILE_OK   = "upload.file_ok"
	UPLOAD_DUPLICATE = "upload.duplicate"
	UPLOAD_TOO_LARGE = "upload.too_large"
	UPLOAD_HOW_VIDEO = "upload.how_video"
	UPLOAD_HOW_FILE  = "upload.how_file"
)

// Share links
const (
	SHARE_LINK      = "share.link"
	SHARE_NOT_FOUND = "share.not_found"
	SHARE_EXPIRED   = "share.expired"
	SHARE_HEADER    = "share.header"
)

// Stats
const (
	STATS_USER  = "stats.user"
	STATS_ADMIN = "stats.admin"
)

// Admin flows
const (
	TRENDING_PROMPT           = "trending.prompt"
	TRENDING_ADDED            = "trending.added"
	TRENDING_CLEARED          = "trending.cleared"
	POPULAR_PROMPT            = "popular.prompt"
	POPULAR_ADDED             = "popular.added"
	POPULAR_CLEARED           = "popular.cleared"
	WIZARD_PROMPT_NAME        = "wizard.prompt.name"
	WIZARD_PROMPT_THUMBNAIL   = "wizard.prompt.thumbnail"
	WIZARD_PROMPT_URL         = "wizard.prompt.url"
	WIZARD_PROMPT_SEASON      = "wizard.prompt.season"
	WIZARD_PROMPT_EPISODE     = "wizard.prompt.episode"
	WIZARD_PROMPT_EPISODE_URL = "wizard.prompt.episode_url"
	WIZARD_PROMPT_ACTION      = "wizard.prompt.action"
	WIZARD_INVALID            = "wizard.invalid"
	WIZARD_SAVED              = "wizard.saved"
	CANCEL_DONE               = "cancel.done"
	CANCEL_NOTHING            = "cancel.nothing"
)
