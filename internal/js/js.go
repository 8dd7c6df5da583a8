package js

// ROW_KEY is evaluated on a row element and returns {key, symbol}. The key
// prefers the grid's data-uid, then symbol and time, then text.
var ROW_KEY string = `
(timeSelector) => {
    var symbol = this.getAttribute('data-symbol') || '';
    var uid = this.getAttribute('data-uid');
    if (uid) {
        return { key: uid, symbol: symbol };
    }
    var timeCell = this.querySelector(timeSelector);
    var time = timeCell ? timeCell.innerText.trim() : '';
    if (symbol && time) {
        return { key: symbol + '@' + time, symbol: symbol };
    }
    return { key: this.innerText.trim().replace(/\s+/g, ' '), symbol: symbol };
}
`

// ROW_CELLS is evaluated on a row element.
var ROW_CELLS string = `
() => {
    return Array.prototype.slice.call(this.querySelectorAll('td')).map(function (td) {
        return {
            text: td.innerText || '',
            inline: td.style.color || '',
            computed: window.getComputedStyle(td).color || ''
        };
    });
}
`

// INSTALL_CONTROLS adds the toggle button and the table style, and puts them
// back whenever the page re-renders without them. Clicking calls the exposed
// binding with {action: "toggle"}, shift+click with {action: "selftest"}.
var INSTALL_CONTROLS string = `
(binding) => {
    var install = function () {
        if (!document.getElementById('blackbox-custom-styles')) {
            var style = document.createElement('style');
            style.id = 'blackbox-custom-styles';
            style.textContent = '#optionStrip .k-grid-table { font-weight: bold !important; font-size: 14px !important; }';
            (document.head || document.documentElement).appendChild(style);
        }
        if (!document.body || document.getElementById('blackbox-monitor-btn')) {
            return;
        }
        var button = document.createElement('button');
        button.id = 'blackbox-monitor-btn';
        button.textContent = window.__optionstripRunning ? 'Pause monitoring' : 'Start monitoring';
        button.title = 'Click to toggle monitoring\nShift+click to test the time window';
        button.style.cssText = 'position: fixed; bottom: 20px; right: 20px; z-index: 10000; padding: 10px 20px;' +
            'color: white; border: none; border-radius: 5px; cursor: pointer; font-size: 14px; font-weight: bold;' +
            'box-shadow: 0 2px 5px rgba(0,0,0,0.2);';
        button.style.backgroundColor = window.__optionstripRunning ? '#f44336' : '#4CAF50';
        button.addEventListener('click', function (e) {
            window[binding]({ action: e.shiftKey ? 'selftest' : 'toggle' });
        });
        document.body.appendChild(button);
    };

    if (document.readyState === 'loading') {
        document.addEventListener('DOMContentLoaded', install);
    } else {
        install();
    }
    if (!window.__optionstripObserver) {
        window.__optionstripObserver = new MutationObserver(install);
        window.__optionstripObserver.observe(document.documentElement, { childList: true, subtree: true });
    }
}
`

var SET_BUTTON_STATE string = `
(running) => {
    window.__optionstripRunning = running;
    var button = document.getElementById('blackbox-monitor-btn');
    if (!button) {
        return;
    }
    button.textContent = running ? 'Pause monitoring' : 'Start monitoring';
    button.style.backgroundColor = running ? '#f44336' : '#4CAF50';
}
`
