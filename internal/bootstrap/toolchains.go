package bootstrap

// Python prefers uv (resolver and venv manager) and keeps pyenv for
// interpreter builds when uv is not wanted on the machine.
func Python() *Installer {
	return &Installer{
		Name: "python",
		Steps: []Step{
			{
				Name:  "install uv",
				Check: "command -v uv >/dev/null 2>&1",
				Run:   "curl -LsSf https://astral.sh/uv/install.sh | sh",
			},
			{
				Name:  "install pyenv",
				Check: "command -v pyenv >/dev/null 2>&1 || test -d \"$HOME/.pyenv\"",
				Run:   "curl -fsSL https://pyenv.run | bash",
			},
			{
				Name:  "install pre-commit",
				Check: "command -v pre-commit >/dev/null 2>&1",
				Run:   "uv tool install pre-commit",
			},
		},
	}
}

// Node installs nvm and the current LTS interpreter, plus pnpm.
func Node() *Installer {
	return &Installer{
		Name: "node",
		Steps: []Step{
			{
				Name:  "install nvm",
				Check: "test -s \"$HOME/.nvm/nvm.sh\"",
				Run:   "curl -o- https://raw.githubusercontent.com/nvm-sh/nvm/v0.40.1/install.sh | bash",
			},
			{
				Name:  "install node lts",
				Check: "command -v node >/dev/null 2>&1",
				Run:   ". \"$HOME/.nvm/nvm.sh\" && nvm install --lts",
			},
			{
				Name:  "enable pnpm",
				Check: "command -v pnpm >/dev/null 2>&1",
				Run:   ". \"$HOME/.nvm/nvm.sh\" && corepack enable pnpm",
			},
		},
	}
}

// Rust installs rustup, registers the wasm target, and installs
// wasm-pack for browser builds.
func Rust() *Installer {
	return &Installer{
		Name: "rust",
		Steps: []Step{
			{
				Name:  "install rustup",
				Check: "command -v rustup >/dev/null 2>&1",
				Run:   "curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh -s -- -y",
			},
			{
				Name:  "add wasm32 target",
				Check: "rustup target list --installed 2>/dev/null | grep -q wasm32-unknown-unknown",
				Run:   "rustup target add wasm32-unknown-unknown",
			},
			{
				Name:  "install wasm-pack",
				Check: "command -v wasm-pack >/dev/null 2>&1",
				Run:   "curl https://rustwasm.github.io/wasm-pack/installer/init.sh -sSf | sh",
			},
		},
	}
}
