package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitrepos"
)

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		SearchPaths: []string{
			filepath.Join(homeDir, "code"),
			filepath.Join(homeDir, "Projects"),
			filepath.Join(homeDir, "Documents", "Projects"),
		},
		OutputDir:         "reports",
		ReportFileFormat:  "report_" + DateToken + ".txt",
		SummaryFileFormat: "summary_" + DateToken + ".txt",
		ExcludeDirs:       gitrepos.DefaultExcludeDirs(),
		Git: GitConfig{
			Binary:          "git",
			LogTimeout:      30 * time.Second,
			IdentityTimeout: 10 * time.Second,
		},
		TextGeneration: TextGenConfig{
			Provider:  ProviderDeepSeek,
			BaseURL:   "https://api.deepseek.com",
			Model:     "deepseek-chat",
			MaxTokens: 1024,
		},
		SummaryTemplate: TemplateConfig{
			MorningLabel:   "Morning schedule and work",
			AfternoonLabel: "Afternoon schedule and work",
			LearningLabel:  "Planned learning and progress",
			Placeholder:    "None",
			LearningRatio:  0.3,
		},
		Workflow: WorkflowConfig{
			StepWait:       2 * time.Second,
			VisibleTimeout: 10 * time.Second,
			ManualWait:     30 * time.Second,
			Selectors:      defaultWorkflowSelectors(),
			Fields: WorkflowFields{
				Morning:   "worksummary",
				Afternoon: "workfld_21",
				Learning:  "workexperience",
				Filler:    "None",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultWorkflowSelectors mirrors the vendor form the submitter was built
// against. Text selectors match the vendor's localized labels.
func defaultWorkflowSelectors() WorkflowSelectors {
	return WorkflowSelectors{
		Username: []string{
			`input#login_user_name`,
			`input[name="login_user_name"]`,
			`input[placeholder*="账号"]`,
			`input[type="text"]`,
		},
		Password: []string{
			`input[type="password"]`,
			`input[name="password"]`,
			`input[name="login_password"]`,
			`input#login_password`,
			`input#password`,
		},
		LoginButton: []string{
			`a.btn-submit`,
			`div#form_login a.btn-submit`,
			`a[onclick*="Check"]`,
			`a:has-text("登录")`,
			`button[type="submit"]`,
			`input[type="submit"]`,
		},
		Menu: []string{
			`nav#pageleft_unfold ul.page-menu li:nth-child(5) a`,
			`nav#pageleft_unfold a span:has-text("OA表单")`,
			`span:has-text("OA表单")`,
		},
		MenuText: "OA表单",
		ReportEntry: []string{
			`nav#pageleft_unfold a[href*="CooperativeWork"]`,
			`nav#pageleft_unfold a:has-text("工作汇报")`,
			`a[href*="CooperativeWork"]`,
			`a:has-text("工作汇报")`,
		},
		ReportURLPart: "CooperativeWork",
		LogTab: []string{
			`a[tag="day"][cont="sendLog"]`,
			`ul#stream-hsent-title a[tag="day"]`,
			`a:has-text("日志")`,
		},
		Publish: []string{
			`input#ReleaseBtn[type="button"]`,
			`input[type="button"][value="发布"]`,
		},
		SuccessText: []string{"发布成功", "提交成功", "保存成功"},
	}
}
